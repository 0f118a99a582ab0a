package site

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"github.com/IshaanNene/BrokerScrape/internal/automation"
	"github.com/IshaanNene/BrokerScrape/internal/config"
	"github.com/IshaanNene/BrokerScrape/internal/types"
)

// Hosted sign-in form markup.
const (
	signInForm     = `form[name="cognitoSignInForm"]`
	signInUsername = `#signInFormUsername`
	signInPassword = `#signInFormPassword`
	signInFrameKey = "cognito"
)

// Login authenticates the session with the configured mode and then waits
// the post-login delay.
func (s *Site) Login(ctx context.Context) error {
	var err error
	switch s.cfg.Auth.Mode {
	case config.AuthManual:
		err = s.waitManualLogin(ctx)
	case config.AuthCredentials:
		err = s.credentialLogin(ctx)
	default:
		return types.NewConfigError("auth.mode", "unsupported mode %q", s.cfg.Auth.Mode)
	}
	if err != nil {
		return err
	}
	return automation.Sleep(ctx, s.cfg.Browser.PostLoginWait)
}

// waitManualLogin waits for the operator to sign in by hand. The listing is
// considered reachable once a card renders.
func (s *Site) waitManualLogin(ctx context.Context) error {
	s.logger.Info("waiting for manual login in the browser window", "timeout", s.cfg.Auth.LoginTimeout)
	if err := s.auto.WaitForAny(ctx, s.cfg.Selectors.Card, s.cfg.Auth.LoginTimeout); err != nil {
		return &types.AuthError{Step: "manual", Err: err}
	}
	s.logger.Info("login detected")
	return nil
}

// credentialLogin fills the hosted sign-in form, which may live in an iframe,
// and waits for the listing to render.
func (s *Site) credentialLogin(ctx context.Context) error {
	if s.cfg.Auth.Username == "" || s.cfg.Auth.Password == "" {
		return types.NewConfigError("auth", "credentials mode needs a username and password (BF_USERNAME / BF_PASSWORD)")
	}
	s.logger.Info("performing credential login", "username", s.cfg.Auth.Username)

	if err := automation.Sleep(ctx, 2*time.Second); err != nil {
		return err
	}

	timeout := s.cfg.Browser.NavigationTimeout
	form, err := s.signInPage(ctx)
	if err != nil {
		return &types.AuthError{Step: "locate form", Err: err}
	}
	if _, err := form.Context(ctx).Timeout(timeout).Element(signInForm); err != nil {
		return &types.AuthError{Step: "form", Err: &types.NavigationError{Op: "wait for element", Target: signInForm, Err: err}}
	}

	user, err := form.Context(ctx).Timeout(timeout).Element(signInUsername)
	if err != nil {
		return &types.AuthError{Step: "username", Err: err}
	}
	pass, err := form.Context(ctx).Timeout(timeout).Element(signInPassword)
	if err != nil {
		return &types.AuthError{Step: "password", Err: err}
	}

	if err := s.auto.TypeInto(ctx, user.Context(ctx), s.cfg.Auth.Username, s.cfg.Auth.TypingDelay); err != nil {
		return &types.AuthError{Step: "username", Err: err}
	}
	if err := s.auto.TypeInto(ctx, pass.Context(ctx), s.cfg.Auth.Password, s.cfg.Auth.TypingDelay); err != nil {
		return &types.AuthError{Step: "password", Err: err}
	}

	wait := s.auto.WaitNavigation(ctx, timeout)
	if _, err := form.Context(ctx).Eval(`() => document.querySelector('` + signInForm + `').submit()`); err != nil {
		return &types.AuthError{Step: "submit", Err: err}
	}
	wait()

	// A rejected sign-in re-renders the form instead of reaching the listing.
	err = s.auto.WaitForSelectorOrText(ctx, s.cfg.Selectors.Card, tabCandidates, s.cfg.Selectors.ContactsTab, s.cfg.Auth.LoginTimeout)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &types.AuthError{Step: "submit", Err: err}
	}

	s.logger.Info("credential login succeeded")
	return nil
}

// signInPage returns the frame holding the sign-in form, or the page itself
// when no sign-in iframe is present.
func (s *Site) signInPage(ctx context.Context) (*rod.Page, error) {
	page := s.auto.Page()
	frames, err := page.Context(ctx).Elements("iframe")
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	for _, f := range frames {
		src, err := f.Attribute("src")
		if err != nil || src == nil || !strings.Contains(*src, signInFrameKey) {
			continue
		}
		frame, err := f.Frame()
		if err != nil {
			return nil, fmt.Errorf("enter sign-in frame: %w", err)
		}
		s.logger.Debug("sign-in form is framed", "src", *src)
		return frame, nil
	}
	return page, nil
}
