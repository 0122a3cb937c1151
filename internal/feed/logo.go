package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

type LogoStatus int

const (
	LogoProbeFailed LogoStatus = iota
	LogoReachable
	LogoUnreachable
)

func (s LogoStatus) String() string {
	switch s {
	case LogoReachable:
		return "reachable"
	case LogoUnreachable:
		return "unreachable"
	default:
		return "probe_failed"
	}
}

// Usable reports whether the logo may be attached to articles.
func (s LogoStatus) Usable() bool {
	return s == LogoReachable
}

// LogoValidator probes logo URLs and remembers each result for its own
// lifetime. Create one per aggregation run so results never leak across runs.
type LogoValidator struct {
	client *http.Client
	log    *slog.Logger

	mu     sync.Mutex
	cache  map[string]LogoStatus
	probes int
}

func NewLogoValidator(client *http.Client, log *slog.Logger) *LogoValidator {
	if client == nil {
		client = &http.Client{Timeout: DefaultClientTimeout}
	}

	// Redirect statuses are classified as they are, not followed.
	noRedirect := *client
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &LogoValidator{
		client: &noRedirect,
		log:    log,
		cache:  make(map[string]LogoStatus),
	}
}

// Validate never fails: request errors are recorded as LogoProbeFailed.
func (v *LogoValidator) Validate(ctx context.Context, logoURL string) LogoStatus {
	logoURL = strings.TrimSpace(logoURL)
	if logoURL == "" {
		return LogoUnreachable
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if status, ok := v.cache[logoURL]; ok {
		return status
	}

	status, err := v.probe(ctx, logoURL)
	if err != nil {
		v.log.WarnContext(ctx, "Failed to probe logo",
			"error", err,
			"logoURL", logoURL)
	}

	v.cache[logoURL] = status
	v.probes++

	return status
}

func (v *LogoValidator) Probes() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.probes
}

func (v *LogoValidator) probe(ctx context.Context, logoURL string) (LogoStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logoURL, nil)
	if err != nil {
		return LogoProbeFailed, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		return LogoProbeFailed, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			v.log.WarnContext(ctx, "Failed to close response body",
				"error", closeErr,
				"logoURL", logoURL)
		}
	}()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusMovedPermanently, http.StatusFound:
		return LogoReachable, nil
	default:
		return LogoUnreachable, nil
	}
}
