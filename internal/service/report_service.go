package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"alphabettutor/internal/models"
)

// emailSender is the part of the SES client used here
type emailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// ReportService e-mails progress summaries to parents via Amazon SES
type ReportService struct {
	client    emailSender
	fromEmail string
	fromName  string
	enabled   bool
	logger    *zap.Logger
}

// NewReportService creates a report service. Without a sender address the
// service is created disabled and every send is skipped.
func NewReportService(ctx context.Context, awsRegion, fromEmail, fromName string, logger *zap.Logger) (*ReportService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fromEmail == "" {
		logger.Info("report e-mails disabled: SES_FROM_EMAIL not configured")
		return &ReportService{logger: logger}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("report e-mails enabled", zap.String("from", fromEmail), zap.String("region", awsRegion))
	return newReportService(sesv2.NewFromConfig(cfg), fromEmail, fromName, logger), nil
}

func newReportService(client emailSender, fromEmail, fromName string, logger *zap.Logger) *ReportService {
	return &ReportService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
		logger:    logger,
	}
}

// IsEnabled returns whether the report service is enabled
func (s *ReportService) IsEnabled() bool {
	return s != nil && s.enabled
}

// SendProgressReport sends the child's progress summary to a parent
func (s *ReportService) SendProgressReport(ctx context.Context, toEmail, childName string, summary models.ProgressSummary) error {
	if !s.IsEnabled() {
		s.logger.Info("skipping report e-mail (service disabled)")
		return nil
	}
	if childName == "" {
		childName = "your child"
	}

	subject := fmt.Sprintf("Alphabet adventure update for %s", childName)
	return s.sendEmail(ctx, toEmail, subject, reportHTML(childName, summary), reportText(childName, summary))
}

func reportText(childName string, summary models.ProgressSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi! Here is how %s is doing with the alphabet.\n\n", childName)
	fmt.Fprintf(&b, "Stars earned: %d\n", summary.StarsEarned)
	fmt.Fprintf(&b, "Letters mastered: %d", summary.LettersMastered)
	if len(summary.MasteredList) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(summary.MasteredList, ", "))
	}
	fmt.Fprintf(&b, "\nBest streak: %d\n", summary.BestStreak)
	fmt.Fprintf(&b, "Perfect pronunciations: %d of %d attempts\n", summary.PerfectPronunciations, summary.TotalAttempts)
	if len(summary.Badges) > 0 {
		b.WriteString("\nBadges:\n")
		for _, badge := range summary.Badges {
			fmt.Fprintf(&b, "- %s %s: %s\n", badge.Icon, badge.Name, badge.Description)
		}
	}
	fmt.Fprintf(&b, "\n%s\n\n---\nThis is an automated e-mail from Bubbly the Alphabet Tutor. Please do not reply.\n", summary.Message)
	return b.String()
}

func reportHTML(childName string, summary models.ProgressSummary) string {
	var badges strings.Builder
	for _, badge := range summary.Badges {
		fmt.Fprintf(&badges, "<li>%s <strong>%s</strong>: %s</li>",
			html.EscapeString(badge.Icon), html.EscapeString(badge.Name), html.EscapeString(badge.Description))
	}
	mastered := html.EscapeString(strings.Join(summary.MasteredList, ", "))

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #f5a623; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>%s's Alphabet Adventure</h1>
		</div>
		<div class="content">
			<p>Stars earned: <strong>%d</strong></p>
			<p>Letters mastered: <strong>%d</strong> %s</p>
			<p>Best streak: <strong>%d</strong></p>
			<p>Perfect pronunciations: <strong>%d</strong> of %d attempts</p>
			<ul>%s</ul>
			<p>%s</p>
		</div>
		<div class="footer">
			<p>This is an automated e-mail from Bubbly the Alphabet Tutor. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, html.EscapeString(childName), summary.StarsEarned, summary.LettersMastered, mastered,
		summary.BestStreak, summary.PerfectPronunciations, summary.TotalAttempts,
		badges.String(), html.EscapeString(summary.Message))
}

// sendEmail sends an email using Amazon SES
func (s *ReportService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send report e-mail: %w", err)
	}

	fields := []zap.Field{zap.String("subject", subject)}
	if result != nil && result.MessageId != nil {
		fields = append(fields, zap.String("message_id", *result.MessageId))
	}
	s.logger.Info("report e-mail sent", fields...)
	return nil
}
