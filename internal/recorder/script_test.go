package recorder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v0xg/webmacro/internal/browser"
	"github.com/v0xg/webmacro/internal/macro"
)

const formPage = `<!DOCTYPE html>
<html>
<head><title>Profile</title></head>
<body>
	<div><div><button type="button">Go</button></div></div>
	<form id="profile">
		<input id="age" type="number">
		<input type="text" name="city">
		<input type="checkbox" name="agree">
	</form>
	<ul><li>one</li><li>two</li></ul>
</body>
</html>`

// autoPage clicks its own button shortly after loading
const autoPage = `<!DOCTYPE html>
<html>
<head><title>Auto</title></head>
<body>
	<p>intro</p>
	<p><button type="button" id="later">Later</button></p>
	<script>setTimeout(() => document.getElementById('later').click(), 1500)</script>
</body>
</html>`

const dispatchScript = `() => {
	document.querySelector('button').click();

	const age = document.getElementById('age');
	age.value = '30';
	age.dispatchEvent(new Event('input', { bubbles: true }));

	document.querySelectorAll('li')[1].click();

	const city = document.querySelector('input[name=city]');
	city.value = 'Lisboa';
	city.dispatchEvent(new Event('input', { bubbles: true }));

	document.querySelector('input[name=agree]').click();
}`

func serve(t *testing.T, html string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func launcherOrSkip(t *testing.T) *browser.Launcher {
	t.Helper()
	if testing.Short() {
		t.Skip("browser test skipped in short mode")
	}
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no Chromium/Chrome binary found")
	}
	return browser.NewLauncher(browser.Options{Bin: bin, Headless: true})
}

func TestCaptureScriptSelectors(t *testing.T) {
	l := launcherOrSkip(t)
	ctx := context.Background()

	session, err := l.Launch(ctx)
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Navigate(ctx, serve(t, formPage)))

	// Installing twice must not double every event
	for i := 0; i < 2; i++ {
		_, err := session.Eval(ctx, captureScript)
		require.NoError(t, err)
	}
	_, err = session.Eval(ctx, dispatchScript)
	require.NoError(t, err)

	raw, err := session.Eval(ctx, drainScript)
	require.NoError(t, err)
	steps, err := decodeEvents(raw)
	require.NoError(t, err)

	type captured struct{ action, selector, value string }
	var got []captured
	for _, s := range steps {
		got = append(got, captured{s.Action, s.Selector, s.Value})
	}
	assert.Equal(t, []captured{
		{"click", "html:nth-of-type(1) > body:nth-of-type(1) > div:nth-of-type(1) > div:nth-of-type(1) > button:nth-of-type(1)", ""},
		{"input", "input#age", "30"},
		{"click", "html:nth-of-type(1) > body:nth-of-type(1) > ul:nth-of-type(1) > li:nth-of-type(2)", ""},
		{"input", "form#profile > input:nth-of-type(2)", "Lisboa"},
		{"click", "form#profile > input:nth-of-type(3)", ""},
		{"input", "form#profile > input:nth-of-type(3)", "on"},
		{"change", "form#profile > input:nth-of-type(3)", "on"},
	}, got)

	checkbox := steps[4].Target()
	assert.Equal(t, "input", checkbox.Tag)
	assert.True(t, checkbox.IsToggle())
	assert.True(t, checkbox.Checked)

	// The buffer is emptied by a drain
	raw, err = session.Eval(ctx, drainScript)
	require.NoError(t, err)
	steps, err = decodeEvents(raw)
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestRecorderInBrowser(t *testing.T) {
	l := launcherOrSkip(t)
	rec := New(l.Factory(), WithPollInterval(50*time.Millisecond))
	url := serve(t, autoPage)

	require.NoError(t, rec.Start(context.Background(), url))
	assert.Eventually(t, func() bool { return rec.Status().Steps >= 1 }, 5*time.Second, 50*time.Millisecond)

	result, err := rec.Stop(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, macro.ActionClick, result.Steps[0].Action)
	assert.Equal(t, "button#later", result.Steps[0].Selector)
	assert.Equal(t, "Auto", result.Metadata["title"])
	assert.Equal(t, url+"/", result.StartURL)
}
