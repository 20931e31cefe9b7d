// Package fetchtest serves canned html to code that depends on fetch.Client.
package fetchtest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"superdb/lib/fetch"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// Pages is a fake fetch.Client. Pages are looked up by exact url first and
// then by Handler. Unknown urls answer with a 404 StatusError.
type Pages struct {
	Pages   map[string]string
	Errors  map[string]error
	Handler func(link string) (string, bool)

	mutex    sync.Mutex
	requests []string
}

func New() *Pages {
	return &Pages{
		Pages:  map[string]string{},
		Errors: map[string]error{},
	}
}

func (p *Pages) Set(link, body string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.Pages[link] = body
}

func (p *Pages) Fail(link string, err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.Errors[link] = err
}

func (p *Pages) Document(ctx context.Context, link string) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mutex.Lock()
	p.requests = append(p.requests, link)
	failure, failed := p.Errors[link]
	body, found := p.Pages[link]
	handler := p.Handler
	p.mutex.Unlock()

	if failed {
		return nil, fmt.Errorf("GET %s: %w", link, failure)
	}
	if !found && handler != nil {
		body, found = handler(link)
	}
	if !found {
		return nil, &fetch.StatusError{Url: link, Status: http.StatusNotFound}
	}
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

// Requests returns every requested url in order.
func (p *Pages) Requests() []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]string(nil), p.requests...)
}

// Count returns how many requested urls contain `substr`.
func (p *Pages) Count(substr string) int {
	count := 0
	for _, r := range p.Requests() {
		if strings.Contains(r, substr) {
			count++
		}
	}
	return count
}
