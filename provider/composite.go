package provider

import (
	"context"
	"errors"

	"github.com/minios-linux/tabclean/translate"
)

// Composite joins a detector and a translator into one provider.
type Composite struct {
	Detector   translate.Detector
	Translator translate.Translator
}

func (c Composite) DetectLanguage(ctx context.Context, text string) (string, error) {
	if c.Detector == nil {
		return "", &translate.DetectionError{Text: text, Err: errors.New("no language detector configured")}
	}
	return c.Detector.DetectLanguage(ctx, text)
}

func (c Composite) Translate(ctx context.Context, text, source, target string) (string, error) {
	if c.Translator == nil {
		return "", &translate.ProviderError{Reason: translate.ReasonUnknown, Text: text, Source: source, Target: target, Err: errors.New("no translator configured")}
	}
	return c.Translator.Translate(ctx, text, source, target)
}

// Echo returns every text unchanged. It is used for dry runs.
type Echo struct{}

func (Echo) Translate(ctx context.Context, text, source, target string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return text, nil
}
