package chrome

import (
	"errors"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// host serves one folder mapped to a virtual hostname. Lookups go through
// os.Root so request paths cannot escape the folder.
type host struct {
	dir  string
	root *os.Root
}

type response struct {
	status      int
	contentType string
	body        []byte
}

func newHost(dir string) (*host, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	return &host{dir: dir, root: root}, nil
}

func (h *host) close() error {
	return h.root.Close()
}

func (h *host) serve(urlPath string) response {
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" || strings.HasSuffix(urlPath, "/") {
		name = path.Join(name, "index.html")
	}
	f, err := h.root.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return response{status: 404}
		}
		return response{status: 403}
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return response{status: 500}
	}
	if info.IsDir() {
		return h.serve(name + "/")
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return response{status: 500}
	}
	return response{status: 200, contentType: contentType(name, data), body: data}
}

func contentType(name string, data []byte) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return mimetype.Detect(data).String()
}
