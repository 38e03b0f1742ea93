package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner, nil); h != inner {
		t.Fatal("expected the single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsPerHandlerLevels(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	infoH := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugH := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(TeeHandler(infoH, debugH))
	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected tee to be enabled for debug when one handler accepts it")
	}
	logger.Debug("probe")
	logger.Info("stage done")

	if strings.Contains(infoBuf.String(), "probe") {
		t.Fatalf("info handler received debug record: %s", infoBuf.String())
	}
	if !strings.Contains(debugBuf.String(), "probe") || !strings.Contains(debugBuf.String(), "stage done") {
		t.Fatalf("debug handler missing records: %s", debugBuf.String())
	}
}

func TestTeeLoggerCarriesAttrsToEveryHandler(t *testing.T) {
	var baseBuf, fileBuf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&baseBuf, nil))
	logger := TeeLogger(base, slog.NewJSONHandler(&fileBuf, nil)).With(String(FieldProjectID, "proj-1"))

	logger.Info("checkpoint written")

	for name, buf := range map[string]*bytes.Buffer{"base": &baseBuf, "file": &fileBuf} {
		if !strings.Contains(buf.String(), `"project_id":"proj-1"`) {
			t.Fatalf("%s handler missing project attr: %s", name, buf.String())
		}
	}
}

func TestTeeLoggerNilBase(t *testing.T) {
	var buf bytes.Buffer
	logger := TeeLogger(nil, slog.NewJSONHandler(&buf, nil))
	logger.Info("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("expected output from tee with nil base, got %q", buf.String())
	}
}
