// Package auth captures NotebookLM credentials from a signed-in browser
// profile, or from a request copied out of the browser's network panel.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// DefaultTargetURL is the page the browser loads to obtain credentials.
const DefaultTargetURL = "https://notebooklm.google.com"

// ErrNotSignedIn is returned when the browser profile has no Google session.
var ErrNotSignedIn = errors.New("not signed in to NotebookLM in this browser profile")

// requiredCookies must include at least one of these for a usable session.
var requiredCookies = []string{"SID", "HSID", "SSID", "APISID"}

// Browser drives a headless copy of a local browser profile.
type Browser struct {
	opts options
}

type options struct {
	profile   string
	targetURL string
	headless  bool
	timeout   time.Duration
	logger    *slog.Logger
	profiles  []Profile // overrides FindProfiles, for tests
}

// Option configures a Browser.
type Option func(*options)

// WithProfile selects the browser profile by directory name, e.g. "Default"
// or "Profile 1". The most recently used profile is used when no profile
// has that name.
func WithProfile(name string) Option { return func(o *options) { o.profile = name } }

// WithTargetURL overrides DefaultTargetURL.
func WithTargetURL(u string) Option { return func(o *options) { o.targetURL = u } }

// WithHeadless controls whether the browser window is hidden.
func WithHeadless(h bool) Option { return func(o *options) { o.headless = h } }

// WithTimeout bounds the whole login.
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithLogger sets the logger for progress diagnostics.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// New returns a Browser.
func New(opts ...Option) *Browser {
	o := options{
		profile:   "Default",
		targetURL: DefaultTargetURL,
		headless:  true,
		timeout:   60 * time.Second,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Browser{opts: o}
}

// Login loads the target page with a copy of the selected profile and
// returns the page's auth token and session cookies.
func (b *Browser) Login(ctx context.Context) (token, cookies string, err error) {
	profiles := b.opts.profiles
	if profiles == nil {
		profiles = FindProfiles()
	}
	p, ok := SelectProfile(profiles, b.opts.profile)
	if !ok {
		return "", "", errors.New("no browser profiles found")
	}
	b.opts.logger.InfoContext(ctx, "using browser profile",
		"profile", MaskProfileName(p.Name), "browser", p.Browser)

	dir, err := os.MkdirTemp("", "nbdl-chrome-*")
	if err != nil {
		return "", "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)
	if err := copyProfile(p.Path, dir); err != nil {
		return "", "", fmt.Errorf("copy profile: %w", err)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(dir),
		chromedp.Flag("headless", b.opts.headless),
		chromedp.Flag("disable-default-apps", true),
		chromedp.WindowSize(1280, 800),
	)
	if path := p.ExecPath(); path != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(path))
	}

	ctx, cancel := context.WithTimeout(ctx, b.opts.timeout)
	defer cancel()
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()
	bctx, bcancel := chromedp.NewContext(allocCtx, chromedp.WithDebugf(func(format string, args ...any) {
		b.opts.logger.Debug(fmt.Sprintf(format, args...))
	}))
	defer bcancel()

	return b.extract(bctx)
}

// extract navigates to the target page and polls until credentials appear.
func (b *Browser) extract(ctx context.Context) (string, string, error) {
	var location string
	if err := chromedp.Run(ctx,
		chromedp.Navigate(b.opts.targetURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Location(&location),
	); err != nil {
		return "", "", fmt.Errorf("load %s: %w", b.opts.targetURL, err)
	}
	if isSignInURL(location) {
		return "", "", ErrNotSignedIn
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		token, cookies, err := b.tryExtract(ctx)
		switch {
		case errors.Is(err, ErrNotSignedIn):
			return "", "", err
		case err != nil:
			b.opts.logger.DebugContext(ctx, "auth data not ready", "err", err)
		case token != "":
			return token, cookies, nil
		}
		select {
		case <-ctx.Done():
			return "", "", fmt.Errorf("wait for auth data: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (b *Browser) tryExtract(ctx context.Context) (token, cookies string, err error) {
	var location string
	if err := chromedp.Run(ctx,
		chromedp.Location(&location),
		chromedp.Evaluate(`(window.WIZ_global_data && WIZ_global_data.SNlM0e) || ""`, &token),
	); err != nil {
		return "", "", err
	}
	if isSignInURL(location) {
		return "", "", ErrNotSignedIn
	}
	if len(token) < 20 {
		return "", "", nil
	}

	err = chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cks, err := network.GetCookies().WithUrls([]string{b.opts.targetURL}).Do(ctx)
		if err != nil {
			return fmt.Errorf("get cookies: %w", err)
		}
		pairs := make([]string, 0, len(cks))
		for _, c := range cks {
			pairs = append(pairs, c.Name+"="+c.Value)
		}
		cookies = strings.Join(pairs, "; ")
		return nil
	}))
	if err != nil {
		return "", "", err
	}
	if !HasSessionCookies(cookies) {
		return "", "", ErrNotSignedIn
	}
	return token, cookies, nil
}

func isSignInURL(u string) bool {
	return strings.Contains(u, "accounts.google.com") ||
		strings.Contains(u, "/signin") ||
		strings.Contains(u, "ServiceLogin")
}

// HasSessionCookies reports whether a Cookie header carries a Google
// session.
func HasSessionCookies(cookies string) bool {
	for _, pair := range strings.Split(cookies, ";") {
		name, _, _ := strings.Cut(strings.TrimSpace(pair), "=")
		for _, req := range requiredCookies {
			if name == req {
				return true
			}
		}
	}
	return false
}

var (
	curlHeader = regexp.MustCompile(`(?i)-H \$?['"]cookie: ([^'"]+)['"]`)
	curlCookie = regexp.MustCompile(`(?:-b|--cookie) \$?['"]([^'"]+)['"]`)
	curlToken  = regexp.MustCompile(`(?:^|[?&'"\s])at=([^&\s'"]+)`)
)

// ParseCurl extracts the auth token and cookies from a batchexecute request
// copied as a curl command.
func ParseCurl(cmd string) (token, cookies string, err error) {
	m := curlHeader.FindStringSubmatch(cmd)
	if m == nil {
		m = curlCookie.FindStringSubmatch(cmd)
	}
	if m == nil {
		return "", "", errors.New("no cookies found in input (looking for a cookie header in curl format)")
	}
	cookies = m[1]

	t := curlToken.FindStringSubmatch(cmd)
	if t == nil {
		return "", "", errors.New("no auth token (at=...) found in input")
	}
	token = t[1]
	if unescaped, err := url.QueryUnescape(token); err == nil {
		token = unescaped
	}
	return token, cookies, nil
}

// MaskProfileName shortens a profile name for display.
func MaskProfileName(profile string) string {
	switch {
	case profile == "":
		return ""
	case len(profile) > 8:
		return profile[:4] + "****" + profile[len(profile)-4:]
	case len(profile) > 2:
		return profile[:2] + "****"
	}
	return "****"
}

// copyProfile copies the files a browser needs to reuse a session into a
// fresh user data directory.
func copyProfile(src, dst string) error {
	profileDir := filepath.Join(dst, "Default")
	if err := os.MkdirAll(profileDir, 0o700); err != nil {
		return err
	}
	for _, name := range []string{"Cookies", "Login Data", "Web Data", "Preferences"} {
		err := copyFile(filepath.Join(src, name), filepath.Join(profileDir, name))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("copy %s: %w", name, err)
		}
	}
	if local := filepath.Join(filepath.Dir(src), "Local State"); fileExists(local) {
		return copyFile(local, filepath.Join(dst, "Local State"))
	}
	return os.WriteFile(filepath.Join(dst, "Local State"), []byte(`{"os_crypt":{"encrypted_key":""}}`), 0o600)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
