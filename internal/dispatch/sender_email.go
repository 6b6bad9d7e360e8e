package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/creatorhub/crosspost-api/internal/models"
)

// EmailSender mails the post to the tenant's recipient list through
// SES. The sender address is built from the tenant's prefix and either
// their own verified domain or the platform domain.
type EmailSender struct {
	Region     string
	SenderBase string
}

func (s *EmailSender) Send(ctx context.Context, raw json.RawMessage, post *models.NewsfeedPost) error {
	var settings models.EmailSettings
	if err := unmarshalSettings(raw, &settings); err != nil {
		return err
	}
	if settings.SenderPrefix == "" {
		return errors.New("email not configured")
	}
	if len(settings.Recipients) == 0 {
		return errors.New("email: no recipients configured")
	}

	domain := settings.SenderDomain
	if domain == "" {
		domain = s.SenderBase
	}
	if domain == "" {
		return errors.New("email: no sender domain available")
	}

	fromEmail := settings.SenderPrefix + "@" + domain
	senderName := settings.SenderName
	if senderName == "" {
		senderName = settings.SenderPrefix
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(s.Region))
	if err != nil {
		return err
	}
	client := sesv2.NewFromConfig(cfg)

	subject := senderName + " - " + post.Title
	body := s.renderHTML(post)

	_, err = client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", senderName, fromEmail)),
		Destination: &types.Destination{
			ToAddresses:  []string{fromEmail},
			BccAddresses: settings.Recipients,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	return err
}

func (s *EmailSender) renderHTML(post *models.NewsfeedPost) string {
	var b strings.Builder
	b.WriteString("<h2>" + htmlEscape(post.Title) + "</h2>\n")
	if img := firstImageURL(post); img != "" {
		b.WriteString(`<p><img src="` + img + `" alt="" style="max-width:100%"></p>` + "\n")
	}
	b.WriteString("<p>" + strings.ReplaceAll(htmlEscape(post.Description), "\n", "<br>") + "</p>\n")
	if post.Location != "" {
		b.WriteString("<p>📍 " + htmlEscape(post.Location) + "</p>\n")
	}
	if video := videoURL(post); video != "" {
		b.WriteString(`<p><a href="` + video + `">🎬 Watch video</a></p>` + "\n")
	}
	if post.ExternalLink != "" {
		b.WriteString(`<p><a href="` + post.ExternalLink + `">Read more →</a></p>` + "\n")
	}
	return b.String()
}

func htmlEscape(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}
