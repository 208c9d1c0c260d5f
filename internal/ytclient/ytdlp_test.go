package ytclient

import (
	"strings"
	"testing"

	"github.com/hevcd/hevcd/internal/cookies"
)

func hasArgPair(args []string, flag, value string) bool {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func TestCommonArgsCredentials(t *testing.T) {
	args := commonArgs(RequestOptions{
		Credentials: cookies.Source{Kind: cookies.SourceFile, Path: "/tmp/cookies.txt"},
	})
	if !hasArgPair(args, "--cookies", "/tmp/cookies.txt") {
		t.Errorf("expected --cookies flag, got %v", args)
	}

	args = commonArgs(RequestOptions{
		Credentials: cookies.Source{Kind: cookies.SourceBrowser, Browser: "firefox"},
	})
	if !hasArgPair(args, "--cookies-from-browser", "firefox") {
		t.Errorf("expected --cookies-from-browser flag, got %v", args)
	}

	args = commonArgs(RequestOptions{})
	for _, a := range args {
		if strings.HasPrefix(a, "--cookies") {
			t.Errorf("no credentials requested but got %v", args)
		}
	}
}

func TestCommonArgsShaping(t *testing.T) {
	opts := RequestOptions{
		UserAgent:        "test-agent",
		Headers:          []string{"Accept-Language: en-US"},
		SleepRequests:    1.5,
		GeoBypassCountry: "US",
		BypassAgeGate:    true,
	}
	args := commonArgs(opts)

	if !hasArgPair(args, "--user-agent", "test-agent") {
		t.Errorf("missing user agent in %v", args)
	}
	if !hasArgPair(args, "--add-headers", "Accept-Language: en-US") {
		t.Errorf("missing headers in %v", args)
	}
	if !hasArgPair(args, "--sleep-requests", "1.5") {
		t.Errorf("missing sleep-requests in %v", args)
	}
	if !hasArgPair(args, "--geo-bypass-country", "US") {
		t.Errorf("missing geo bypass in %v", args)
	}
	if !hasArgPair(args, "--extractor-args", ageGateExtractorArgs) {
		t.Errorf("missing age gate bypass in %v", args)
	}
}

func TestTail(t *testing.T) {
	if got := tail("  short error  "); got != "short error" {
		t.Errorf("tail = %q", got)
	}

	long := strings.Repeat("x", 2000) + "end"
	got := tail(long)
	if len(got) != stderrTailLimit {
		t.Errorf("expected %d chars, got %d", stderrTailLimit, len(got))
	}
	if !strings.HasSuffix(got, "end") {
		t.Error("tail must keep the end of the output")
	}
}
