package browser

import (
	"net"
	"slices"
	"strconv"
	"testing"
)

func TestLauncherArgs(t *testing.T) {
	l := NewLauncher(Config{
		CDPAddress: "127.0.0.1",
		CDPPort:    9333,
		ProfileDir: "/tmp/profile",
		Headless:   true,
		UserAgent:  "resgrab-test",
	})
	args := l.args()

	for _, want := range []string{
		"--remote-debugging-port=9333",
		"--remote-debugging-address=127.0.0.1",
		"--user-data-dir=/tmp/profile",
		"--window-size=1920,1080",
		"--headless=new",
		"--user-agent=resgrab-test",
	} {
		if !slices.Contains(args, want) {
			t.Fatalf("args() = %v; missing %q", args, want)
		}
	}
	if args[len(args)-1] != "about:blank" {
		t.Fatalf("last arg = %q; want about:blank", args[len(args)-1])
	}
}

func TestLauncherArgsHeaded(t *testing.T) {
	args := NewLauncher(Config{CDPAddress: "127.0.0.1", CDPPort: 9222}).args()
	if slices.Contains(args, "--headless=new") {
		t.Fatalf("args() = %v; want no headless flag", args)
	}
}

func TestIsPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	if !isPortInUse("127.0.0.1", port) {
		t.Fatalf("isPortInUse(%d) = false while listening", port)
	}
	_ = ln.Close()
	if isPortInUse("127.0.0.1", port) {
		t.Fatalf("isPortInUse(%s) = true after close", strconv.Itoa(port))
	}
}
