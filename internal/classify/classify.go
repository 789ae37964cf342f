// Package classify decides how a previewed file travels to the web app and
// which character encoding its text is decoded with.
package classify

import "pkt.systems/webviewplus/schema"

// binaryExtensions must match BINARY_EXTENSIONS in the web app's openFile.ts.
var binaryExtensions = map[string]struct{}{
	"pdf":   {},
	"xlsx":  {},
	"xls":   {},
	"ods":   {},
	"gltf":  {},
	"glb":   {},
	"fbx":   {},
	"obj":   {},
	"webp":  {},
	"jpg":   {},
	"jpeg":  {},
	"png":   {},
	"apng":  {},
	"gif":   {},
	"bmp":   {},
	"avif":  {},
	"ttf":   {},
	"otf":   {},
	"woff":  {},
	"woff2": {},
}

// Result is the classification of a single path.
type Result struct {
	Extension string
	IsBinary  bool
}

// Classify derives the extension of path and whether it is delivered as
// binary. Unknown extensions are text.
func Classify(path string) Result {
	ext := schema.Extension(path)
	return Result{Extension: ext, IsBinary: IsBinaryExtension(ext)}
}

// IsBinaryExtension reports whether ext (lower-case, no dot) is on the binary list.
func IsBinaryExtension(ext string) bool {
	_, ok := binaryExtensions[ext]
	return ok
}

// BinaryExtensions returns a copy of the binary extension list.
func BinaryExtensions() []string {
	out := make([]string, 0, len(binaryExtensions))
	for ext := range binaryExtensions {
		out = append(out, ext)
	}
	return out
}
