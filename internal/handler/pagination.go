package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/hitoshi/shoplist/internal/model"
)

// pageResponse はページ単位のコレクションレスポンス。
// next/previousは同じパスへのURL。該当ページがない場合はnull。
type pageResponse[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// newPageResponse はmodel.Pageをレスポンスに変換する。
func newPageResponse[S, T any](r *http.Request, page *model.Page[S], convert func(S) T) pageResponse[T] {
	results := make([]T, 0, len(page.Results))
	for _, s := range page.Results {
		results = append(results, convert(s))
	}

	resp := pageResponse[T]{
		Count:   page.Count,
		Results: results,
	}
	if page.HasNext() {
		next := pageURL(r, page.Page+1)
		resp.Next = &next
	}
	if page.HasPrevious() {
		prev := pageURL(r, page.Page-1)
		resp.Previous = &prev
	}
	return resp
}

// pageURL は現在のリクエストURLのpageパラメータを差し替えたURLを返す。
// 1ページ目はpageパラメータを付けない。
func pageURL(r *http.Request, page int) string {
	q := r.URL.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u := url.URL{Path: r.URL.Path, RawQuery: q.Encode()}
	return u.String()
}
