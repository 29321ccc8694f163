package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbanhydro/abimo/internal/resilience"
)

// FTPFetcher downloads files over FTP. Credentials are taken from the URL;
// without them the anonymous login is used.
type FTPFetcher struct {
	opts Options
}

// NewFTPFetcher returns an FTPFetcher; a zero timeout gets the default.
func NewFTPFetcher(opts Options) *FTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Retry.OnRetry == nil {
		opts.Retry.OnRetry = resilience.LogRetries("ftp download")
	}
	return &FTPFetcher{opts: opts}
}

type ftpTarget struct {
	addr     string
	path     string
	user     string
	password string
}

func parseFTPURL(rawURL string) (ftpTarget, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ftpTarget{}, eris.Wrap(err, "ftp: parse url")
	}
	if u.Scheme != "ftp" {
		return ftpTarget{}, eris.Errorf("ftp: expected ftp scheme, got %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		return ftpTarget{}, eris.New("ftp: empty path")
	}

	t := ftpTarget{
		addr:     u.Host,
		path:     u.Path,
		user:     "anonymous",
		password: "anonymous@",
	}
	if _, _, err := net.SplitHostPort(t.addr); err != nil {
		t.addr = net.JoinHostPort(t.addr, "21")
	}
	if u.User != nil {
		t.user = u.User.Username()
		t.password, _ = u.User.Password()
	}
	return t, nil
}

// ftpBody closes the transfer and the control connection together.
type ftpBody struct {
	*ftp.Response
	conn *ftp.ServerConn
}

func (b *ftpBody) Close() error {
	respErr := b.Response.Close()
	quitErr := b.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "ftp: close transfer")
	}
	return eris.Wrap(quitErr, "ftp: quit")
}

// Download logs in and starts the transfer of the file. Closing the body
// ends the session.
func (f *FTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	t, err := parseFTPURL(rawURL)
	if err != nil {
		return nil, err
	}

	return resilience.DoVal(ctx, f.opts.Retry, func(ctx context.Context) (io.ReadCloser, error) {
		zap.L().Debug("ftp: connecting", zap.String("addr", t.addr), zap.String("path", t.path))

		conn, err := ftp.Dial(t.addr, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
		if err != nil {
			return nil, eris.Wrap(err, "ftp: dial")
		}
		if err := conn.Login(t.user, t.password); err != nil {
			_ = conn.Quit()
			return nil, eris.Wrap(err, "ftp: login")
		}

		resp, err := conn.Retr(t.path)
		if err != nil {
			_ = conn.Quit()
			return nil, eris.Wrapf(err, "ftp: retrieve %s", t.path)
		}
		return &ftpBody{Response: resp, conn: conn}, nil
	})
}

// DownloadToFile writes the remote file to path.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, rawURL, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	return copyToFile(path, body)
}
