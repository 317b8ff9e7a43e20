// Command msfrpc-client is an example Metasploit MSGRPC client.
//
// Password can be provided via:
//   - -pass flag (least secure, visible in process list)
//   - MSF_PASSWORD environment variable (recommended)
//   - stdin prompt (if neither flag nor env var is set)
//
// Usage:
//
//	msfrpc-client -host <address> -user <username> -method <method> [args...]
//
// Examples:
//
//	# List exploit modules
//	export MSF_PASSWORD='secret'
//	msfrpc-client -host 192.168.9.225 -user msf -method module.exploits
//
//	# Compatible payloads for one exploit
//	msfrpc-client -user msf -method module.compatible_payloads windows/smb/psexec
//
//	# Arguments as JSON
//	msfrpc-client -user msf -json -method module.execute '"exploit"' '"unix/ftp/vsftpd_234_backdoor"' '{"RHOSTS":"10.0.0.5"}'
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/smnsjas/go-msfrpc/client"
	"github.com/smnsjas/go-msfrpc/codec"
	msflog "github.com/smnsjas/go-msfrpc/internal/log"
)

func main() {
	host := flag.String("host", client.DefaultHost, "MSGRPC server address")
	port := flag.Int("port", client.DefaultPort, "MSGRPC server port")
	path := flag.String("path", client.DefaultPath, "MSGRPC endpoint path")
	useTLS := flag.Bool("tls", false, "Use HTTPS")
	insecure := flag.Bool("insecure", false, "Skip TLS certificate verification")
	proxy := flag.String("proxy", "", "HTTP proxy URL (\"direct\" to bypass HTTP_PROXY)")
	username := flag.String("user", "msf", "Username for auth.login")
	password := flag.String("pass", "", "Password (use MSF_PASSWORD env var instead)")
	method := flag.String("method", "core.version", "RPC method to call")
	jsonArgs := flag.Bool("json", false, "Parse positional arguments as JSON values")
	timeout := flag.Duration("timeout", 60*time.Second, "Overall timeout")
	rateLimit := flag.Float64("rate", 0, "Max requests per second (0 = unlimited)")
	logLevel := flag.String("loglevel", "", "Log level: debug, info, warn, error (empty = no logging)")

	flag.Parse()

	var logger *slog.Logger
	if *logLevel != "" {
		var level slog.Level
		switch strings.ToLower(*logLevel) {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			fmt.Fprintf(os.Stderr, "Invalid log level '%s'. Valid values: debug, info, warn, error\n", *logLevel)
			os.Exit(1)
		}

		opts := &slog.HandlerOptions{Level: level}
		logger = slog.New(msflog.NewRedactingHandler(slog.NewTextHandler(os.Stderr, opts)))
	}

	args, err := parseArgs(flag.Args(), *jsonArgs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	pass := getPassword(*password)
	if pass == "" {
		fmt.Fprintln(os.Stderr, "Error: password is required (use -pass, MSF_PASSWORD env, or stdin)")
		os.Exit(1)
	}

	c, err := client.New(client.Config{
		Host:               *host,
		Port:               *port,
		Path:               *path,
		UseTLS:             *useTLS,
		InsecureSkipVerify: *insecure,
		Proxy:              *proxy,
		Timeout:            *timeout,
		RateLimit:          *rateLimit,
		Logger:             logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := c.Login(ctx, *username, pass); err != nil {
		fmt.Fprintf(os.Stderr, "Login to %s failed: %v\n", c.Endpoint(), err)
		os.Exit(1)
	}

	resp, err := c.Call(ctx, *method, args...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Call %s failed: %v\n", *method, err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(resp.Interface(), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if notice, isFault := faultNotice(resp); isFault {
		fmt.Fprintln(os.Stderr, notice)
		os.Exit(2)
	}
}

// faultNotice describes a server fault for stderr. It reports false when
// resp is not a fault.
func faultNotice(resp codec.Value) (string, bool) {
	fault, ok := codec.AsFault(resp)
	if !ok {
		return "", false
	}
	if fault.IsInvalidToken() {
		return "Session token rejected by server (expired or revoked); log in again", true
	}
	return "Server returned an error: " + fault.Error(), true
}

// parseArgs turns positional arguments into call arguments. Without asJSON
// every argument is a string.
func parseArgs(raw []string, asJSON bool) ([]any, error) {
	args := make([]any, 0, len(raw))
	for _, s := range raw {
		if !asJSON {
			args = append(args, s)
			continue
		}

		dec := json.NewDecoder(bytes.NewReader([]byte(s)))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("argument %q is not valid JSON: %w", s, err)
		}
		arg, err := fromJSON(v)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", s, err)
		}
		args = append(args, arg)
	}
	return args, nil
}

// fromJSON converts json.Number values to int64 where possible so integers
// are not sent as floats. Numbers outside the float64 range are an error.
func fromJSON(v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %s out of range", val)
		}
		return f, nil
	case []any:
		for i := range val {
			item, err := fromJSON(val[i])
			if err != nil {
				return nil, err
			}
			val[i] = item
		}
		return val, nil
	case map[string]any:
		for k := range val {
			item, err := fromJSON(val[k])
			if err != nil {
				return nil, err
			}
			val[k] = item
		}
		return val, nil
	}
	return v, nil
}

// getPassword returns password from flag, env var, or prompts for it.
func getPassword(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envPass := os.Getenv("MSF_PASSWORD"); envPass != "" {
		return envPass
	}

	fmt.Fprint(os.Stderr, "Password: ")

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		passBytes, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return ""
		}
		return string(passBytes)
	}

	// Piped input: read one line.
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}
