package wordbank

import "pronounce/internal/models"

// Default returns the built-in catalog: a Spanish and a French track, each a
// beginner → intermediate → advanced unlock chain.
func Default() Catalog {
	return Catalog{
		Assessments: []models.AssessmentDefinition{
			{
				ID:           "es-basics",
				Title:        "Spanish Basics",
				Description:  "Greetings, numbers and everyday words",
				Language:     "es",
				Level:        models.LevelBeginner,
				WordCount:    10,
				TimeLimitSec: 300,
				PassingScore: 70,
			},
			{
				ID:           "es-intermediate",
				Title:        "Spanish Conversation",
				Description:  "Short phrases you will hear every day",
				Language:     "es",
				Level:        models.LevelIntermediate,
				WordCount:    10,
				TimeLimitSec: 420,
				PassingScore: 75,
				Prerequisite: "es-basics",
			},
			{
				ID:           "es-advanced",
				Title:        "Spanish Fluency",
				Description:  "Longer sentences and tricky sounds",
				Language:     "es",
				Level:        models.LevelAdvanced,
				WordCount:    8,
				TimeLimitSec: 600,
				PassingScore: 80,
				Prerequisite: "es-intermediate",
			},
			{
				ID:           "fr-basics",
				Title:        "French Basics",
				Description:  "Greetings, numbers and everyday words",
				Language:     "fr",
				Level:        models.LevelBeginner,
				WordCount:    10,
				TimeLimitSec: 300,
				PassingScore: 70,
			},
			{
				ID:           "fr-intermediate",
				Title:        "French Conversation",
				Description:  "Short phrases you will hear every day",
				Language:     "fr",
				Level:        models.LevelIntermediate,
				WordCount:    10,
				TimeLimitSec: 420,
				PassingScore: 75,
				Prerequisite: "fr-basics",
			},
			{
				ID:           "fr-advanced",
				Title:        "French Fluency",
				Description:  "Longer sentences, liaisons and nasal vowels",
				Language:     "fr",
				Level:        models.LevelAdvanced,
				WordCount:    8,
				TimeLimitSec: 600,
				PassingScore: 80,
				Prerequisite: "fr-intermediate",
			},
		},
		Pools: map[PoolKey][]models.WordItem{
			{Language: "es", Level: models.LevelBeginner}: {
				{ID: 1, Text: "hola", Phonetic: "OH-lah", Hint: "A friendly greeting"},
				{ID: 2, Text: "gracias", Phonetic: "GRAH-see-ahs", Hint: "Saying thanks"},
				{ID: 3, Text: "adiós", Phonetic: "ah-DYOHS", Hint: "Saying goodbye"},
				{ID: 4, Text: "por favor", Phonetic: "por fah-VOR", Hint: "Asking politely"},
				{ID: 5, Text: "agua", Phonetic: "AH-gwah", Hint: "Something to drink"},
				{ID: 6, Text: "casa", Phonetic: "KAH-sah", Hint: "Where you live"},
				{ID: 7, Text: "perro", Phonetic: "PEH-rroh", Hint: "Roll the double r"},
				{ID: 8, Text: "gato", Phonetic: "GAH-toh", Hint: "A pet that purrs"},
				{ID: 9, Text: "uno", Phonetic: "OO-noh", Hint: "The first number"},
				{ID: 10, Text: "dos", Phonetic: "dohs", Hint: "One more than one"},
				{ID: 11, Text: "tres", Phonetic: "trehs", Hint: "Tap the r once"},
				{ID: 12, Text: "buenos días", Phonetic: "BWEH-nohs DEE-ahs", Hint: "Morning greeting"},
				{ID: 13, Text: "amigo", Phonetic: "ah-MEE-goh", Hint: "Someone you like"},
				{ID: 14, Text: "libro", Phonetic: "LEE-broh", Hint: "Something to read"},
				{ID: 15, Text: "sí", Phonetic: "see", Hint: "Agreeing"},
			},
			{Language: "es", Level: models.LevelIntermediate}: {
				{ID: 1, Text: "¿cómo estás?", Phonetic: "KOH-moh ehs-TAHS", Hint: "Asking how someone is"},
				{ID: 2, Text: "me llamo", Phonetic: "meh YAH-moh", Hint: "Introducing yourself"},
				{ID: 3, Text: "mucho gusto", Phonetic: "MOO-choh GOOS-toh", Hint: "Nice to meet you"},
				{ID: 4, Text: "¿dónde está el baño?", Phonetic: "DOHN-deh ehs-TAH el BAH-nyoh", Hint: "Finding the bathroom"},
				{ID: 5, Text: "la cuenta, por favor", Phonetic: "lah KWEHN-tah por fah-VOR", Hint: "At the end of a meal"},
				{ID: 6, Text: "no entiendo", Phonetic: "noh ehn-TYEHN-doh", Hint: "When you are lost"},
				{ID: 7, Text: "hasta luego", Phonetic: "AHS-tah LWEH-goh", Hint: "See you later"},
				{ID: 8, Text: "tengo hambre", Phonetic: "TEHN-goh AHM-breh", Hint: "Time to eat"},
				{ID: 9, Text: "¿qué hora es?", Phonetic: "keh OH-rah ehs", Hint: "Asking the time"},
				{ID: 10, Text: "buenas noches", Phonetic: "BWEH-nahs NOH-chehs", Hint: "Evening greeting"},
				{ID: 11, Text: "lo siento", Phonetic: "loh SYEHN-toh", Hint: "Apologising"},
				{ID: 12, Text: "de nada", Phonetic: "deh NAH-dah", Hint: "Reply to thanks"},
			},
			{Language: "es", Level: models.LevelAdvanced}: {
				{ID: 1, Text: "el ferrocarril corre rápido", Hint: "Trilled r throughout"},
				{ID: 2, Text: "me gustaría reservar una mesa", Hint: "Booking a table"},
				{ID: 3, Text: "desafortunadamente no puedo ir", Hint: "Declining politely"},
				{ID: 4, Text: "el murciélago vuela de noche", Hint: "Every vowel in one word"},
				{ID: 5, Text: "tres tristes tigres", Hint: "A classic tongue twister"},
				{ID: 6, Text: "¿podría hablar más despacio?", Hint: "Asking someone to slow down"},
				{ID: 7, Text: "la zanahoria es anaranjada", Hint: "Watch the j sound"},
				{ID: 8, Text: "quisiera cambiar dinero", Hint: "At the bank"},
				{ID: 9, Text: "el otorrinolaringólogo", Hint: "Take it slowly"},
				{ID: 10, Text: "hace mucho calor hoy", Hint: "Talking about the weather"},
			},
			{Language: "fr", Level: models.LevelBeginner}: {
				{ID: 1, Text: "bonjour", Phonetic: "bohn-ZHOOR", Hint: "A friendly greeting"},
				{ID: 2, Text: "merci", Phonetic: "mehr-SEE", Hint: "Saying thanks"},
				{ID: 3, Text: "au revoir", Phonetic: "oh ruh-VWAHR", Hint: "Saying goodbye"},
				{ID: 4, Text: "s'il vous plaît", Phonetic: "seel voo PLEH", Hint: "Asking politely"},
				{ID: 5, Text: "eau", Phonetic: "oh", Hint: "Something to drink"},
				{ID: 6, Text: "maison", Phonetic: "meh-ZOHN", Hint: "Where you live"},
				{ID: 7, Text: "chien", Phonetic: "shyehn", Hint: "A loyal pet"},
				{ID: 8, Text: "chat", Phonetic: "shah", Hint: "A pet that purrs"},
				{ID: 9, Text: "un", Phonetic: "uhn", Hint: "The first number"},
				{ID: 10, Text: "deux", Phonetic: "duh", Hint: "One more than one"},
				{ID: 11, Text: "trois", Phonetic: "twah", Hint: "Keep the r soft"},
				{ID: 12, Text: "oui", Phonetic: "wee", Hint: "Agreeing"},
				{ID: 13, Text: "ami", Phonetic: "ah-MEE", Hint: "Someone you like"},
				{ID: 14, Text: "livre", Phonetic: "LEE-vruh", Hint: "Something to read"},
				{ID: 15, Text: "pain", Phonetic: "pahn", Hint: "From the boulangerie"},
			},
			{Language: "fr", Level: models.LevelIntermediate}: {
				{ID: 1, Text: "comment ça va ?", Hint: "Asking how someone is"},
				{ID: 2, Text: "je m'appelle", Hint: "Introducing yourself"},
				{ID: 3, Text: "enchanté", Hint: "Nice to meet you"},
				{ID: 4, Text: "où sont les toilettes ?", Hint: "Finding the bathroom"},
				{ID: 5, Text: "l'addition, s'il vous plaît", Hint: "At the end of a meal"},
				{ID: 6, Text: "je ne comprends pas", Hint: "When you are lost"},
				{ID: 7, Text: "à bientôt", Hint: "See you soon"},
				{ID: 8, Text: "j'ai faim", Hint: "Time to eat"},
				{ID: 9, Text: "quelle heure est-il ?", Hint: "Asking the time"},
				{ID: 10, Text: "bonne nuit", Hint: "Before bed"},
				{ID: 11, Text: "je suis désolé", Hint: "Apologising"},
				{ID: 12, Text: "de rien", Hint: "Reply to thanks"},
			},
			{Language: "fr", Level: models.LevelAdvanced}: {
				{ID: 1, Text: "les chaussettes de l'archiduchesse", Hint: "A classic tongue twister"},
				{ID: 2, Text: "je voudrais réserver une table", Hint: "Booking a table"},
				{ID: 3, Text: "malheureusement je ne peux pas venir", Hint: "Declining politely"},
				{ID: 4, Text: "un bon vin blanc", Hint: "Four nasal vowels"},
				{ID: 5, Text: "pourriez-vous parler plus lentement ?", Hint: "Asking someone to slow down"},
				{ID: 6, Text: "il fait très chaud aujourd'hui", Hint: "Talking about the weather"},
				{ID: 7, Text: "les écureuils grimpent aux arbres", Hint: "The dreaded écureuil"},
				{ID: 8, Text: "nous sommes allés au musée", Hint: "Mind the liaison"},
				{ID: 9, Text: "la grenouille a sauté", Hint: "Soft g and ill"},
				{ID: 10, Text: "ils ont eu une bonne idée", Hint: "Liaison after ils"},
			},
		},
	}
}
