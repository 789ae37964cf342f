// Package prefs exposes the typed preferences of the previewer on top of a
// settings.Store.
package prefs

import (
	"sort"
	"strings"

	"pkt.systems/webviewplus/internal/settings"
)

// Scope is the settings scope owned by the previewer.
const Scope = "WebViewPlus"

// Setting keys.
const (
	KeyExtensionList   = "ExtensionList"
	KeyDetectEncoding  = "DetectEncoding"
	KeyShowTrayIcon    = "ShowTrayIcon"
	KeyUseTransparency = "UseTransparency"
	KeyWindowWidth     = "WindowWidth"
	KeyWindowHeight    = "WindowHeight"
	KeyWebAppURL       = "WebAppUrl"
)

// Default window size and the fraction of the screen it may occupy.
const (
	DefaultWindowWidth  = 1000
	DefaultWindowHeight = 1200
	WindowFit           = 0.9
)

// DefaultExtensions is the allow-list used until the web app replaces it.
var DefaultExtensions = []string{
	"html", "htm", "mht", "mhtml", "pdf", "csv", "xlsx", "svg", "md", "markdown", "gltf", "glb",
	"c++", "h++", "bat", "c", "cmake", "cpp", "cs", "css", "d", "go", "h", "hpp", "java", "js",
	"json", "jsx", "kt", "lua", "m", "mm", "makefile", "pas", "perl", "php", "pl", "ps1", "psm1",
	"py", "r", "rb", "rs", "sass", "scala", "scss", "sh", "sql", "swift", "tex", "ts", "tsx",
	"txt", "webp", "xml", "yaml", "yml",
}

// Extensions is a case-insensitive extension allow-list.
type Extensions struct {
	set map[string]struct{}
}

// NewExtensions normalises list: trimmed, lower-cased, leading dots and
// empty entries dropped.
func NewExtensions(list []string) Extensions {
	set := make(map[string]struct{}, len(list))
	for _, ext := range list {
		ext = strings.ToLower(strings.TrimSpace(ext))
		ext = strings.TrimPrefix(ext, ".")
		if ext == "" {
			continue
		}
		set[ext] = struct{}{}
	}
	return Extensions{set: set}
}

// ParseExtensions splits the stored comma-joined form.
func ParseExtensions(stored string) Extensions {
	return NewExtensions(strings.Split(stored, ","))
}

// Contains reports whether ext (with or without a leading dot) is allowed.
func (e Extensions) Contains(ext string) bool {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if ext == "" {
		return false
	}
	_, ok := e.set[ext]
	return ok
}

// Len is the number of distinct extensions.
func (e Extensions) Len() int { return len(e.set) }

// List returns the extensions sorted.
func (e Extensions) List() []string {
	out := make([]string, 0, len(e.set))
	for ext := range e.set {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Prefs reads and writes preferences through a settings.Store.
type Prefs struct {
	store settings.Store
}

// New wraps store.
func New(store settings.Store) *Prefs {
	return &Prefs{store: store}
}

// Store exposes the backing store.
func (p *Prefs) Store() settings.Store { return p.store }

// Extensions loads the allow-list.
func (p *Prefs) Extensions() Extensions {
	stored, ok := p.store.Get(Scope, KeyExtensionList)
	if !ok {
		return NewExtensions(DefaultExtensions)
	}
	return ParseExtensions(stored)
}

// SaveExtensions persists list as given, comma-joined.
func (p *Prefs) SaveExtensions(list []string) error {
	return p.store.Set(Scope, KeyExtensionList, strings.Join(list, ","))
}

// DetectEncoding is scoped to the previewer and defaults to false.
func (p *Prefs) DetectEncoding() bool {
	return settings.Bool(p.store, Scope, KeyDetectEncoding, false)
}

func (p *Prefs) SetDetectEncoding(v bool) error {
	return settings.SetBool(p.store, Scope, KeyDetectEncoding, v)
}

// ShowTrayIcon is a global host setting and defaults to true.
func (p *Prefs) ShowTrayIcon() bool {
	return settings.Bool(p.store, settings.GlobalScope, KeyShowTrayIcon, true)
}

func (p *Prefs) SetShowTrayIcon(v bool) error {
	return settings.SetBool(p.store, settings.GlobalScope, KeyShowTrayIcon, v)
}

// UseTransparency is a global host setting and defaults to true.
func (p *Prefs) UseTransparency() bool {
	return settings.Bool(p.store, settings.GlobalScope, KeyUseTransparency, true)
}

func (p *Prefs) SetUseTransparency(v bool) error {
	return settings.SetBool(p.store, settings.GlobalScope, KeyUseTransparency, v)
}

// WindowSize returns the last persisted preview size.
func (p *Prefs) WindowSize() (width, height float64) {
	width = settings.Float(p.store, Scope, KeyWindowWidth, DefaultWindowWidth)
	height = settings.Float(p.store, Scope, KeyWindowHeight, DefaultWindowHeight)
	return width, height
}

// SaveWindowSize persists a preview size. Non-positive sizes are ignored.
func (p *Prefs) SaveWindowSize(width, height float64) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	if err := settings.SetFloat(p.store, Scope, KeyWindowWidth, width); err != nil {
		return err
	}
	return settings.SetFloat(p.store, Scope, KeyWindowHeight, height)
}

// WebAppURL is an optional override of the bundled web app location.
func (p *Prefs) WebAppURL() string {
	return strings.TrimSpace(settings.String(p.store, Scope, KeyWebAppURL, ""))
}
