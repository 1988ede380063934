package log

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	SetLevel(LevelError)
	Info("hidden", "k", 1)
	assert.Empty(t, buf.String())

	Error("boom", errors.New("bad"), "event_id", "ev-1")
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), "err=bad")
	assert.Contains(t, buf.String(), "event_id=ev-1")

	SetLevel(LevelInfo)
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetFormat("json")
	defer func() {
		SetFormat("text")
		SetOutput(nil)
	}()

	Info("hello", "tz", "Asia/Tokyo")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"tz":"Asia/Tokyo"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel(" ERROR "))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}

func TestReconfigureWhileLogging(t *testing.T) {
	defer SetOutput(nil)
	defer SetFormat("text")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if (i+j)%2 == 0 {
					SetFormat("json")
				} else {
					SetFormat("text")
				}
				SetOutput(io.Discard)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Info("tick", "j", j)
			}
		}()
	}
	wg.Wait()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetFormat("text")
	SetLevel(LevelInfo)
	Info("done")
	assert.Contains(t, buf.String(), "msg=done")
}
