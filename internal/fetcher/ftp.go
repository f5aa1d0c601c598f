package fetcher

import (
	"context"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/salespulse/internal/config"
)

// FTPDrop is a distributor file drop reached over plain FTP. Each call
// opens a fresh connection; the weekly cadence makes pooling pointless.
type FTPDrop struct {
	addr    string
	user    string
	pass    string
	dir     string
	timeout time.Duration
}

// NewFTPDrop builds an FTPDrop from config. Missing credentials fall
// back to anonymous login.
func NewFTPDrop(cfg config.FTPConfig) *FTPDrop {
	addr := cfg.Addr
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "21")
	}
	user, pass := cfg.User, cfg.Password
	if user == "" {
		user, pass = "anonymous", "anonymous@"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &FTPDrop{addr: addr, user: user, pass: pass, dir: cfg.Dir, timeout: timeout}
}

func (f *FTPDrop) connect(ctx context.Context) (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(f.addr, ftp.DialWithTimeout(f.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: ftp dial")
	}
	if err := conn.Login(f.user, f.pass); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "fetcher: ftp login")
	}
	return conn, nil
}

// List returns the sales files in the drop directory, ignoring anything
// that is not a supported spreadsheet format.
func (f *FTPDrop) List(ctx context.Context) ([]string, error) {
	conn, err := f.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit() //nolint:errcheck

	names, err := conn.NameList(f.dir)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: ftp list %s", f.dir)
	}
	return filterSalesFiles(names), nil
}

// Fetch downloads one drop file into destDir.
func (f *FTPDrop) Fetch(ctx context.Context, name, destDir string) (string, error) {
	conn, err := f.connect(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Quit() //nolint:errcheck

	remote := path.Join(f.dir, path.Base(name))
	zap.L().Debug("fetcher: ftp retrieve",
		zap.String("addr", f.addr), zap.String("path", remote))

	resp, err := conn.Retr(remote)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: ftp retrieve %s", remote)
	}
	defer resp.Close() //nolint:errcheck

	local := filepath.Join(destDir, path.Base(name))
	file, err := os.Create(local)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: create local file")
	}
	defer file.Close() //nolint:errcheck

	if _, err := io.Copy(file, resp); err != nil {
		return "", eris.Wrapf(err, "fetcher: write %s", local)
	}
	return local, nil
}

// filterSalesFiles keeps basenames with an ingestible extension.
func filterSalesFiles(names []string) []string {
	var out []string
	for _, n := range names {
		base := path.Base(n)
		switch strings.ToLower(path.Ext(base)) {
		case ".csv", ".xlsx":
			out = append(out, base)
		}
	}
	return out
}
