package destination

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"path"
	"time"

	"github.com/dl-alexandre/sheetmirror/internal/logging"
	"github.com/jlaffaye/ftp"
)

// FTPConfig describes how to reach and log in to an FTP server
type FTPConfig struct {
	Addr     string
	User     string
	Password string
	Timeout  time.Duration
	// ExplicitTLS upgrades the control connection with AUTH TLS
	ExplicitTLS bool
}

// FTPDialer dials FTP sessions
type FTPDialer struct {
	cfg    FTPConfig
	logger logging.Logger
}

// NewFTPDialer creates an FTP dialer
func NewFTPDialer(cfg FTPConfig, logger logging.Logger) *FTPDialer {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &FTPDialer{cfg: cfg, logger: logger}
}

// Dial connects and logs in
func (d *FTPDialer) Dial(ctx context.Context) (Conn, error) {
	opts := []ftp.DialOption{
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(d.cfg.Timeout),
	}
	if d.cfg.ExplicitTLS {
		host, _, err := net.SplitHostPort(d.cfg.Addr)
		if err != nil {
			host = d.cfg.Addr
		}
		opts = append(opts, ftp.DialWithExplicitTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}))
	}

	c, err := ftp.Dial(d.cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("ftp: dial %s: %w", d.cfg.Addr, err)
	}
	if err := c.Login(d.cfg.User, d.cfg.Password); err != nil {
		_ = c.Quit()
		return nil, fmt.Errorf("ftp: login as %s: %w", d.cfg.User, err)
	}

	root, err := c.CurrentDir()
	if err != nil {
		_ = c.Quit()
		return nil, fmt.Errorf("ftp: pwd: %w", err)
	}

	d.logger.Debug("FTP session opened",
		logging.F("addr", d.cfg.Addr),
		logging.F("user", d.cfg.User),
		logging.F("root", root),
	)
	return &ftpConn{c: c, root: root}, nil
}

type ftpConn struct {
	c    *ftp.ServerConn
	root string
}

// mapErr turns reply 550 into ErrNotFound
func mapErr(op, target string, err error) error {
	if err == nil {
		return nil
	}
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) && tpErr.Code == ftp.StatusFileUnavailable {
		return fmt.Errorf("ftp: %s %q: %w: %s", op, target, ErrNotFound, tpErr.Msg)
	}
	return fmt.Errorf("ftp: %s %q: %w", op, target, err)
}

func (f *ftpConn) dirExists(dir string) bool {
	if err := f.c.ChangeDir(dir); err != nil {
		return false
	}
	_ = f.c.ChangeDir(f.root)
	return true
}

func (f *ftpConn) EnsureDir(ctx context.Context, dir string) error {
	for _, p := range segments(dir) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f.c.MakeDir(p); err != nil {
			if f.dirExists(p) {
				continue
			}
			return mapErr("mkdir", p, err)
		}
	}
	return nil
}

func (f *ftpConn) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	listed, err := f.c.List(dir)
	if err != nil {
		return nil, mapErr("list", dir, err)
	}
	entries := make([]Entry, 0, len(listed))
	for _, e := range listed {
		name := path.Base(e.Name)
		if name == "." || name == ".." {
			continue
		}
		entries = append(entries, Entry{
			Name:  name,
			Size:  int64(e.Size),
			IsDir: e.Type == ftp.EntryTypeFolder,
		})
	}
	return entries, nil
}

func (f *ftpConn) Retrieve(ctx context.Context, file string, w io.Writer) (n int64, err error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	resp, err := f.c.Retr(file)
	if err != nil {
		return 0, mapErr("retr", file, err)
	}
	defer func() {
		if closeErr := resp.Close(); closeErr != nil && err == nil {
			err = mapErr("retr", file, closeErr)
		}
	}()
	n, err = io.Copy(w, resp)
	if err != nil {
		return n, mapErr("retr", file, err)
	}
	return n, nil
}

func (f *ftpConn) Store(ctx context.Context, file string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapErr("stor", file, f.c.Stor(file, r))
}

func (f *ftpConn) Rename(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapErr("rename", from, f.c.Rename(from, to))
}

func (f *ftpConn) Remove(ctx context.Context, file string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapErr("dele", file, f.c.Delete(file))
}

func (f *ftpConn) Close() error {
	return f.c.Quit()
}
