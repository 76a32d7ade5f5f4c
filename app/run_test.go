package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/flagonhq/flagon/models"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestRunServesAndShutsDown(t *testing.T) {
	buf := setLogBuffer()
	port := freePort(t)
	a := testApp(t, WithStaticFolder(""), WithListenHost("127.0.0.1"), WithListenPort(port))

	a.Route("/")(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "up")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	var (
		resp *http.Response
		err  error
	)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	for i := 0; i < 100; i++ {
		resp, err = http.Get(base + "/")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Log(buf.String())
		t.Fatalf("Expected the server to come up but kept getting %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "up" {
		t.Log(buf.String())
		t.Errorf("Expected 200 up but got %d %q", resp.StatusCode, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Log(buf.String())
			t.Errorf("Expected a clean shutdown but got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Log(buf.String())
		t.Fatal("Run did not return after cancel")
	}

	// the registry stays frozen once Run has served
	if err := a.GET("/late", func(w http.ResponseWriter, r *http.Request) {}); err != models.ErrAppFrozen {
		t.Log(buf.String())
		t.Errorf("Expected ErrAppFrozen after Run but got %v", err)
	}
}

func TestRunReportsListenError(t *testing.T) {
	buf := setLogBuffer()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	a := testApp(t, WithStaticFolder(""), WithListenHost("127.0.0.1"), WithListenPort(port))

	runErr := a.Run(context.Background())
	if runErr == nil {
		t.Log(buf.String())
		t.Fatal("Expected Run to report the occupied port")
	}
}
