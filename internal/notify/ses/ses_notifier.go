package ses

import (
	"context"
	"encoding/json"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"gstpipeline/internal/port"
)

type sesNotifier struct {
	client      *sesv2.Client
	fromAddress string
	fromName    string
	toAddresses []string
}

// NewSESNotifier creates an SES-backed Notifier that emails the finance team
// on approval requests and pipeline failures.
func NewSESNotifier(region, fromAddress, fromName string, toAddresses []string) (port.Notifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	client := sesv2.NewFromConfig(cfg)
	return &sesNotifier{
		client:      client,
		fromAddress: fromAddress,
		fromName:    fromName,
		toAddresses: toAddresses,
	}, nil
}

func (s *sesNotifier) Send(ctx context.Context, n port.Notification) error {
	subject := fmt.Sprintf("[%s] %s", n.Kind, n.Title)
	textBody := buildTextBody(n)
	htmlBody := buildHTMLBody(n)

	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: s.toAddresses,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses notify send: %w", err)
	}
	return nil
}

func buildTextBody(n port.Notification) string {
	payload, _ := json.MarshalIndent(n.Payload, "", "  ")
	return fmt.Sprintf("%s\n\nSeverity: %s\n\nDetails:\n%s\n\nGST Pipeline", n.Title, n.Kind, payload)
}

func buildHTMLBody(n port.Notification) string {
	payload, _ := json.MarshalIndent(n.Payload, "", "  ")
	return fmt.Sprintf(`<html><body>
<h2>%s</h2>
<p><strong>Severity:</strong> %s</p>
<pre>%s</pre>
<p>GST Pipeline</p>
</body></html>`, n.Title, n.Kind, payload)
}
