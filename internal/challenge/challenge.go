package challenge

import (
	"errors"
	"fmt"

	"github.com/nordgren/eventscout/internal/captcha"
)

// Kind classifies a blocking screen.
type Kind string

const (
	KindConsent  Kind = "consent"
	KindBotCheck Kind = "bot-check"
	KindCaptcha  Kind = "captcha"
)

// Challenge is a blocking screen found on the current page. Challenges are
// per-navigation and never persisted.
type Challenge struct {
	Kind Kind
	// Captcha carries the extracted widget parameters when Kind is
	// KindCaptcha.
	Captcha *captcha.Challenge
}

func (c *Challenge) String() string {
	if c.Captcha != nil {
		return fmt.Sprintf("%s (%s)", c.Kind, c.Captcha.Type)
	}
	return string(c.Kind)
}

// ErrUnresolved is returned when a challenge survived every dismissal and
// resolution strategy. The source is skipped for this run.
var ErrUnresolved = errors.New("challenge could not be resolved")
