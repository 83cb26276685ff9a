package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"pronounce/internal/models"
)

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func testResult() (models.AssessmentDefinition, models.FinalResult) {
	def := models.AssessmentDefinition{ID: "fr-basics", Title: "French <Basics>", PassingScore: 70}
	result := models.FinalResult{
		AverageScore: 72,
		TotalWords:   2,
		PassedWords:  1,
		Passed:       true,
		Attempts: []models.AttemptRecord{
			{Expected: "bonjour", Spoken: "bonjour", Score: 100},
			{Expected: "merci", Spoken: "<script>", Score: 44},
		},
	}
	return def, result
}

func TestNewEmailServiceDisabled(t *testing.T) {
	s, err := NewEmailService(context.Background(), "us-east-1", "", "", "", false)
	if err != nil {
		t.Fatalf("NewEmailService() error = %v", err)
	}
	if s.IsEnabled() {
		t.Fatal("service without sender should be disabled")
	}

	def, result := testResult()
	if err := s.SendResultEmail(context.Background(), "a@example.com", "A", def, result, "ok"); err != nil {
		t.Errorf("disabled SendResultEmail() error = %v", err)
	}
}

func TestSendResultEmail(t *testing.T) {
	ses := &fakeSES{}
	s := &EmailService{
		client:     ses,
		fromEmail:  "noreply@example.com",
		fromName:   "Pronounce",
		appBaseURL: "https://pronounce.example.com",
		enabled:    true,
	}

	def, result := testResult()
	if err := s.SendResultEmail(context.Background(), "ana@example.com", "Ana", def, result, "Passed."); err != nil {
		t.Fatalf("SendResultEmail() error = %v", err)
	}

	in := ses.input
	if got := aws.ToString(in.FromEmailAddress); got != "Pronounce <noreply@example.com>" {
		t.Errorf("From = %q", got)
	}
	if len(in.Destination.ToAddresses) != 1 || in.Destination.ToAddresses[0] != "ana@example.com" {
		t.Errorf("To = %v", in.Destination.ToAddresses)
	}
	if got := aws.ToString(in.Content.Simple.Subject.Data); got != "French <Basics>: Passed (72%)" {
		t.Errorf("Subject = %q", got)
	}

	htmlBody := aws.ToString(in.Content.Simple.Body.Html.Data)
	if strings.Contains(htmlBody, "<script>") || !strings.Contains(htmlBody, "&lt;script&gt;") {
		t.Error("spoken text should be escaped in the HTML body")
	}
	if !strings.Contains(htmlBody, "https://pronounce.example.com/assessments/fr-basics") {
		t.Error("HTML body missing review link")
	}

	textBody := aws.ToString(in.Content.Simple.Body.Text.Data)
	if !strings.Contains(textBody, "Hi Ana,") || !strings.Contains(textBody, "Passed.") {
		t.Errorf("text body = %q", textBody)
	}
}

func TestSendResultEmailFailure(t *testing.T) {
	ses := &fakeSES{err: errors.New("throttled")}
	s := &EmailService{client: ses, fromEmail: "noreply@example.com", enabled: true}

	def, result := testResult()
	err := s.SendResultEmail(context.Background(), "ana@example.com", "", def, result, "")
	if err == nil || !strings.Contains(err.Error(), "ana@example.com") {
		t.Errorf("SendResultEmail() error = %v", err)
	}
	if got := aws.ToString(ses.input.FromEmailAddress); got != "noreply@example.com" {
		t.Errorf("From without name = %q", got)
	}
}
