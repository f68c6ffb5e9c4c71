package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/lox/evdash/internal/metrics"
)

const defaultFTPPort = "21"

// FTPSource retrieves a dataset file from an FTP server. Credentials come
// from the URL; anonymous login is used when none are given.
type FTPSource struct {
	host     string
	path     string
	user     string
	password string
	timeout  time.Duration
}

func NewFTPSource(u *url.URL) *FTPSource {
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), defaultFTPPort)
	}
	src := &FTPSource{
		host:     host,
		path:     u.Path,
		user:     "anonymous",
		password: "anonymous",
		timeout:  30 * time.Second,
	}
	if u.User != nil {
		src.user = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			src.password = pw
		}
	}
	return src
}

func (f *FTPSource) String() string {
	return "ftp://" + f.host + f.path
}

func (f *FTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	body, err := f.retrieve(ctx)
	if err != nil {
		metrics.FetchAttemptsTotal.WithLabelValues("ftp", "error").Inc()
		return nil, err
	}
	metrics.FetchAttemptsTotal.WithLabelValues("ftp", "ok").Inc()
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (f *FTPSource) retrieve(ctx context.Context) ([]byte, error) {
	conn, err := ftp.Dial(f.host, ftp.DialWithTimeout(f.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login(f.user, f.password); err != nil {
		return nil, fmt.Errorf("ftp login: %w", err)
	}

	resp, err := conn.Retr(f.path)
	if err != nil {
		return nil, fmt.Errorf("ftp retr: %w", err)
	}
	defer resp.Close()

	body, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
