// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package view

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"
)

// DefaultTitle is the title of a Page created without WithTitle.
const DefaultTitle = "cap-spa"

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
</head>
<body>
<div id="loading"{{if not (index .Visible "loading")}} hidden{{end}}>Loading...</div>
<div id="error"{{if not (index .Visible "error")}} hidden{{end}}>
<h2>Something went wrong</h2>
<p id="error-details">{{index .Text "error-details"}}</p>
<p>Reload the page to try again.</p>
</div>
<div id="app"{{if not (index .Visible "app")}} hidden{{end}}>
<div id="logged-out"{{if not (index .Visible "logged-out")}} hidden{{end}}>
<p>You are not logged in.</p>
<form method="get" action="/login"><button id="login" type="submit">Log in</button></form>
</div>
<div id="logged-in"{{if not (index .Visible "logged-in")}} hidden{{end}}>
<div id="profile"{{if not (index .Visible "profile")}} hidden{{end}}>
<img id="profile-picture" src="{{.PictureSrc}}" alt="Profile picture" width="96" height="96" onerror="this.onerror=null;this.src={{.PictureFallback}};">
<h2 id="profile-name">{{index .Text "profile-name"}}</h2>
<p id="profile-email">{{index .Text "profile-email"}}</p>
</div>
<form method="post" action="/api/call"><button id="call-api" type="submit">Call API</button></form>
<pre id="api-output">{{index .Text "api-output"}}</pre>
<form method="get" action="/logout"><button id="logout" type="submit">Log out</button></form>
</div>
</div>
</body>
</html>
`

var pageTemplate = template.Must(template.New("page").Parse(pageHTML))

type image struct {
	src      string
	fallback string
}

// Page is an in-memory Display which renders as an HTML document.  Every
// region starts hidden and empty.  It is concurrently safe.
type Page struct {
	mu      sync.Mutex
	title   string
	visible map[Region]bool
	text    map[Region]string
	images  map[Region]image
}

// NewPage creates an empty Page.
//
// Supported options:
//
//	WithTitle
func NewPage(opt ...Option) *Page {
	opts := getPageOpts(opt...)
	return &Page{
		title:   opts.withTitle,
		visible: map[Region]bool{},
		text:    map[Region]string{},
		images:  map[Region]image{},
	}
}

// SetVisible implements the Display interface.
func (p *Page) SetVisible(r Region, visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible[r] = visible
}

// SetText implements the Display interface.
func (p *Page) SetText(r Region, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.text[r] = text
}

// SetImage implements the Display interface.
func (p *Page) SetImage(r Region, src, fallback string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.images[r] = image{src: src, fallback: fallback}
}

// Batch implements the Batcher interface.  The writes are staged on a copy of
// the page which replaces the page's regions once they all succeed.  A panic
// leaves the page unchanged and is passed on to the caller.
func (p *Page) Batch(write func(Display)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	staged := &Page{
		title:   p.title,
		visible: make(map[Region]bool, len(p.visible)),
		text:    make(map[Region]string, len(p.text)),
		images:  make(map[Region]image, len(p.images)),
	}
	for k, v := range p.visible {
		staged.visible[k] = v
	}
	for k, v := range p.text {
		staged.text[k] = v
	}
	for k, v := range p.images {
		staged.images[k] = v
	}
	write(staged)
	p.visible, p.text, p.images = staged.visible, staged.text, staged.images
}

// Visible reports whether the region is visible.
func (p *Page) Visible(r Region) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible[r]
}

// Text returns the region's text.
func (p *Page) Text(r Region) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text[r]
}

// Image returns the region's image source and fallback.
func (p *Page) Image(r Region) (src, fallback string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	img := p.images[r]
	return img.src, img.fallback
}

type pageData struct {
	Title           string
	Visible         map[string]bool
	Text            map[string]string
	PictureSrc      template.URL
	PictureFallback string
}

// Render writes the page as an HTML document.
func (p *Page) Render(w io.Writer) error {
	const op = "Page.Render"
	p.mu.Lock()
	data := pageData{
		Title:   p.title,
		Visible: make(map[string]bool, len(p.visible)),
		Text:    make(map[string]string, len(p.text)),
	}
	for r, v := range p.visible {
		data.Visible[string(r)] = v
	}
	for r, t := range p.text {
		data.Text[string(r)] = t
	}
	pic := p.images[RegionProfilePicture]
	p.mu.Unlock()

	data.PictureSrc = imageURL(pic.src)
	data.PictureFallback = string(imageURL(pic.fallback))
	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("%s: unable to render page: %w", op, err)
	}
	return nil
}

// imageURL returns the source if it's an http(s) URL or an inline image, and
// an empty URL otherwise.
func imageURL(src string) template.URL {
	lower := strings.ToLower(src)
	switch {
	case strings.HasPrefix(lower, "https://"), strings.HasPrefix(lower, "http://"):
		return template.URL(src)
	case strings.HasPrefix(lower, "data:image/"):
		return template.URL(src)
	default:
		return ""
	}
}

// pageOptions is the set of available options for Page functions
type pageOptions struct {
	withTitle string
}

func pageDefaults() pageOptions {
	return pageOptions{
		withTitle: DefaultTitle,
	}
}

func getPageOpts(opt ...Option) pageOptions {
	opts := pageDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
