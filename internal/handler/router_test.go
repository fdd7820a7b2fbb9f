package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/shoplist/internal/access"
	"github.com/hitoshi/shoplist/internal/auth"
	"github.com/hitoshi/shoplist/internal/middleware"
	"github.com/hitoshi/shoplist/internal/repository/memory"
	"github.com/hitoshi/shoplist/internal/security"
	"github.com/hitoshi/shoplist/internal/shoppingitem"
	"github.com/hitoshi/shoplist/internal/shoppinglist"
	"github.com/hitoshi/shoplist/internal/user"
)

const routerTestSecret = "router-test-secret-0123456789abcdef"

// testEnv はインメモリストアと実サービスで構成したルーター全体のテスト環境。
type testEnv struct {
	handler http.Handler
	issuer  *auth.TokenIssuer
	users   *user.Service
}

type envOptions struct {
	listPageSize int
	rateLimit    middleware.RateLimiterConfig
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	store := memory.NewStore()
	policy := access.NewPolicy(store.Lists())
	sanitizer := security.NewNameSanitizer()
	issuer := auth.NewTokenIssuer(routerTestSecret, time.Hour)
	authService := auth.NewService(store.Users(), issuer)
	userService := user.NewService(store.Users())

	if opts.rateLimit.PerMinute == 0 && opts.rateLimit.PerDay == 0 {
		opts.rateLimit = middleware.DefaultRateLimiterConfig()
	}
	rl := middleware.NewRateLimiter(opts.rateLimit)
	t.Cleanup(rl.Stop)

	h := NewRouter(&RouterDeps{
		Logger:            logger,
		Authenticator:     authService,
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		AuthService:       authService,
		UserService:       userService,
		ListService: shoppinglist.NewService(store.Lists(), store.Users(), policy, sanitizer, shoppinglist.Config{
			PageSize: opts.listPageSize,
			Logger:   logger,
		}),
		ItemService: shoppingitem.NewService(store.Items(), store.Lists(), policy, sanitizer, shoppingitem.Config{
			Logger: logger,
		}),
	})

	return &testEnv{handler: h, issuer: issuer, users: userService}
}

// createUser はユーザーを作成し、そのIDとアクセストークンを返す。
func (e *testEnv) createUser(t *testing.T, username string, admin bool) (string, string) {
	t.Helper()
	u, err := e.users.CreateUser(context.Background(), username, "password-123", admin)
	if err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	token, err := e.issuer.Issue(u.ID)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return u.ID, token
}

// do はルーターにリクエストを送り、レスポンスを返す。
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decodeInto[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v (body=%s)", err, w.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body=%s)", w.Code, want, w.Body.String())
	}
}

func (e *testEnv) createList(t *testing.T, token, name string) listResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/shopping-lists", token, map[string]string{"name": name})
	expectStatus(t, w, http.StatusCreated)
	return decodeInto[listResponse](t, w)
}

func (e *testEnv) createItem(t *testing.T, token, listID, name string) itemResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/shopping-lists/"+listID+"/shopping-items", token, map[string]string{"name": name})
	expectStatus(t, w, http.StatusCreated)
	return decodeInto[itemResponse](t, w)
}

func (e *testEnv) purchase(t *testing.T, token, listID, itemID string) {
	t.Helper()
	w := e.do(t, http.MethodPatch, "/api/shopping-lists/"+listID+"/shopping-items/"+itemID, token, map[string]bool{"purchased": true})
	expectStatus(t, w, http.StatusOK)
}

type listPage struct {
	Count    int            `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []listResponse `json:"results"`
}

type itemPage struct {
	Count   int            `json:"count"`
	Results []itemResponse `json:"results"`
}

// --- 認証 ---

func TestRouter_NoToken_Returns401(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	w := env.do(t, http.MethodGet, "/api/shopping-lists", "", nil)

	expectStatus(t, w, http.StatusUnauthorized)
}

func TestRouter_InvalidToken_Returns401(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	w := env.do(t, http.MethodGet, "/api/shopping-lists", "not-a-jwt", nil)

	expectStatus(t, w, http.StatusUnauthorized)
}

func TestRouter_LoginThenMe(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	aliceID, _ := env.createUser(t, "alice", false)

	w := env.do(t, http.MethodPost, "/api/auth/token", "", map[string]string{"username": "alice", "password": "password-123"})
	expectStatus(t, w, http.StatusOK)
	token := decodeInto[tokenResponse](t, w).Token
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	expectStatus(t, rec, http.StatusOK)
	me := decodeInto[userResponse](t, rec)
	if me.ID != aliceID || me.Username != "alice" || me.IsAdmin {
		t.Errorf("unexpected profile: %+v", me)
	}
}

func TestRouter_LoginWrongPassword_Returns400(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.createUser(t, "alice", false)

	w := env.do(t, http.MethodPost, "/api/auth/token", "", map[string]string{"username": "alice", "password": "nope-nope"})

	expectStatus(t, w, http.StatusBadRequest)
}

// --- アクセス制御 ---

func TestRouter_NonMember_Forbidden_AdminAllowed(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, alice := env.createUser(t, "alice", false)
	_, mallory := env.createUser(t, "mallory", false)
	_, admin := env.createUser(t, "root", true)

	list := env.createList(t, alice, "Groceries")
	item := env.createItem(t, alice, list.ID, "milk")

	expectStatus(t, env.do(t, http.MethodGet, "/api/shopping-lists/"+list.ID, mallory, nil), http.StatusForbidden)
	expectStatus(t, env.do(t, http.MethodGet, "/api/shopping-lists/"+list.ID+"/shopping-items", mallory, nil), http.StatusForbidden)
	expectStatus(t, env.do(t, http.MethodGet, "/api/shopping-lists/"+list.ID+"/shopping-items/"+item.ID, mallory, nil), http.StatusForbidden)
	expectStatus(t, env.do(t, http.MethodDelete, "/api/shopping-lists/"+list.ID, mallory, nil), http.StatusForbidden)

	expectStatus(t, env.do(t, http.MethodGet, "/api/shopping-lists/"+list.ID, admin, nil), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodGet, "/api/shopping-lists/"+list.ID+"/shopping-items/"+item.ID, admin, nil), http.StatusOK)
}

func TestRouter_ListingScopedToMemberships(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, alice := env.createUser(t, "alice", false)
	_, bob := env.createUser(t, "bob", false)

	env.createList(t, alice, "Alice's")
	env.createList(t, bob, "Bob's")

	w := env.do(t, http.MethodGet, "/api/shopping-lists", alice, nil)
	expectStatus(t, w, http.StatusOK)
	page := decodeInto[listPage](t, w)
	if page.Count != 1 || len(page.Results) != 1 || page.Results[0].Name != "Alice's" {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestRouter_MissingList_Returns404(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, alice := env.createUser(t, "alice", false)

	expectStatus(t, env.do(t, http.MethodGet, "/api/shopping-lists/"+uuid.NewString(), alice, nil), http.StatusNotFound)
	expectStatus(t, env.do(t, http.MethodGet, "/api/shopping-lists/42", alice, nil), http.StatusNotFound)
}

func TestRouter_ItemFromOtherList_Returns404(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, alice := env.createUser(t, "alice", false)

	a := env.createList(t, alice, "A")
	b := env.createList(t, alice, "B")
	item := env.createItem(t, alice, a.ID, "milk")

	w := env.do(t, http.MethodGet, "/api/shopping-lists/"+b.ID+"/shopping-items/"+item.ID, alice, nil)

	expectStatus(t, w, http.StatusNotFound)
}

// --- 並び順 ---

func TestRouter_PurchaseMovesListToFront(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, alice := env.createUser(t, "alice", false)

	older := env.createList(t, alice, "Older")
	item := env.createItem(t, alice, older.ID, "bread")
	env.createList(t, alice, "Newer")

	page := decodeInto[listPage](t, env.do(t, http.MethodGet, "/api/shopping-lists", alice, nil))
	if page.Results[0].Name != "Newer" {
		t.Fatalf("first list = %q, want Newer", page.Results[0].Name)
	}

	env.purchase(t, alice, older.ID, item.ID)

	page = decodeInto[listPage](t, env.do(t, http.MethodGet, "/api/shopping-lists", alice, nil))
	if page.Results[0].Name != "Older" {
		t.Errorf("first list after purchase = %q, want Older", page.Results[0].Name)
	}
	if len(page.Results[0].UnpurchasedItems) != 0 {
		t.Errorf("unpurchased_items = %+v, want empty", page.Results[0].UnpurchasedItems)
	}
}

// --- 重複アイテム ---

func TestRouter_DuplicateUnpurchasedItem_Rejected(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, alice := env.createUser(t, "alice", false)

	list := env.createList(t, alice, "Groceries")
	first := env.createItem(t, alice, list.ID, "milk")

	w := env.do(t, http.MethodPost, "/api/shopping-lists/"+list.ID+"/shopping-items", alice, map[string]string{"name": "milk"})
	expectStatus(t, w, http.StatusBadRequest)
	if body := parseAPIErrorResponse(t, w); body["message"] != "There's already this item on the list" {
		t.Errorf("message = %q", body["message"])
	}

	// 購入済みになれば同名アイテムを追加できる
	env.purchase(t, alice, list.ID, first.ID)
	env.createItem(t, alice, list.ID, "milk")

	items := decodeInto[itemPage](t, env.do(t, http.MethodGet, "/api/shopping-lists/"+list.ID+"/shopping-items", alice, nil))
	if items.Count != 2 {
		t.Fatalf("count = %d, want 2", items.Count)
	}
	if items.Results[0].Purchased || !items.Results[1].Purchased {
		t.Errorf("expected unpurchased item first: %+v", items.Results)
	}
}

func TestRouter_SameNameOnDifferentLists_Allowed(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, alice := env.createUser(t, "alice", false)

	a := env.createList(t, alice, "A")
	b := env.createList(t, alice, "B")
	env.createItem(t, alice, a.ID, "milk")
	env.createItem(t, alice, b.ID, "milk")
}

// --- メンバー変更 ---

func TestRouter_AddMembers_GrantsAccess(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	aliceID, alice := env.createUser(t, "alice", false)
	bobID, bob := env.createUser(t, "bob", false)

	list := env.createList(t, alice, "Shared")

	w := env.do(t, http.MethodPut, "/api/shopping-lists/"+list.ID+"/add-members", alice, map[string][]string{"members": {bobID}})
	expectStatus(t, w, http.StatusOK)
	body := decodeInto[listMembersResponse](t, w)
	if len(body.Members) != 2 || body.Members[0] != aliceID || body.Members[1] != bobID {
		t.Errorf("members = %v, want [%s %s]", body.Members, aliceID, bobID)
	}

	expectStatus(t, env.do(t, http.MethodGet, "/api/shopping-lists/"+list.ID, bob, nil), http.StatusOK)

	w = env.do(t, http.MethodPut, "/api/shopping-lists/"+list.ID+"/remove-members", alice, map[string][]string{"members": {bobID}})
	expectStatus(t, w, http.StatusOK)
	expectStatus(t, env.do(t, http.MethodGet, "/api/shopping-lists/"+list.ID, bob, nil), http.StatusForbidden)
}

func TestRouter_AddMembers_UnknownID_AppliesNothing(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, alice := env.createUser(t, "alice", false)
	bobID, bob := env.createUser(t, "bob", false)

	list := env.createList(t, alice, "Shared")

	w := env.do(t, http.MethodPut, "/api/shopping-lists/"+list.ID+"/add-members", alice,
		map[string][]string{"members": {bobID, uuid.NewString()}})
	expectStatus(t, w, http.StatusBadRequest)

	expectStatus(t, env.do(t, http.MethodGet, "/api/shopping-lists/"+list.ID, bob, nil), http.StatusForbidden)
	got := decodeInto[listResponse](t, env.do(t, http.MethodGet, "/api/shopping-lists/"+list.ID, alice, nil))
	if len(got.Members) != 1 {
		t.Errorf("members = %+v, want only alice", got.Members)
	}
}

func TestRouter_AddMembers_UppercaseID_Accepted(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, alice := env.createUser(t, "alice", false)
	bobID, bob := env.createUser(t, "bob", false)

	list := env.createList(t, alice, "Shared")

	w := env.do(t, http.MethodPut, "/api/shopping-lists/"+list.ID+"/add-members", alice,
		map[string][]string{"members": {strings.ToUpper(bobID), bobID}})
	expectStatus(t, w, http.StatusOK)
	body := decodeInto[listMembersResponse](t, w)
	if len(body.Members) != 2 || body.Members[1] != bobID {
		t.Errorf("members = %v, want alice then %s", body.Members, bobID)
	}

	expectStatus(t, env.do(t, http.MethodGet, "/api/shopping-lists/"+list.ID, bob, nil), http.StatusOK)
}

func TestRouter_UppercasePathIDs_ResolveToSameResources(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, alice := env.createUser(t, "alice", false)

	list := env.createList(t, alice, "Groceries")
	milk := env.createItem(t, alice, list.ID, "milk")
	upperList := strings.ToUpper(list.ID)

	got := decodeInto[listResponse](t, env.do(t, http.MethodGet, "/api/shopping-lists/"+upperList, alice, nil))
	if got.ID != list.ID {
		t.Errorf("id = %q, want %q", got.ID, list.ID)
	}

	w := env.do(t, http.MethodGet, "/api/shopping-lists/"+upperList+"/shopping-items/"+strings.ToUpper(milk.ID), alice, nil)
	expectStatus(t, w, http.StatusOK)
	if item := decodeInto[itemResponse](t, w); item.ID != milk.ID {
		t.Errorf("item id = %q, want %q", item.ID, milk.ID)
	}

	w = env.do(t, http.MethodGet, "/api/shopping-lists/urn:uuid:"+list.ID+"/shopping-items", alice, nil)
	expectStatus(t, w, http.StatusOK)
	if page := decodeInto[itemPage](t, w); page.Count != 1 {
		t.Errorf("count = %d, want 1", page.Count)
	}
}

func TestRouter_AddMembers_NonMember_Forbidden(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, alice := env.createUser(t, "alice", false)
	malloryID, mallory := env.createUser(t, "mallory", false)

	list := env.createList(t, alice, "Private")

	w := env.do(t, http.MethodPut, "/api/shopping-lists/"+list.ID+"/add-members", mallory, map[string][]string{"members": {malloryID}})

	expectStatus(t, w, http.StatusForbidden)
}

// --- 一括操作 ---

func TestRouter_MarkBulkPurchased_InvalidID_ChangesNothing(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, alice := env.createUser(t, "alice", false)
	_, bob := env.createUser(t, "bob", false)

	list := env.createList(t, alice, "Groceries")
	milk := env.createItem(t, alice, list.ID, "milk")
	bobList := env.createList(t, bob, "Bob's")
	bobItem := env.createItem(t, bob, bobList.ID, "eggs")

	for _, ids := range [][]string{
		{milk.ID, "bogus"},
		{milk.ID, uuid.NewString()},
		{milk.ID, bobItem.ID},
	} {
		w := env.do(t, http.MethodPatch, "/api/shopping-items/mark-bulk-purchased", alice, map[string][]string{"shopping_items": ids})
		expectStatus(t, w, http.StatusBadRequest)
	}

	got := decodeInto[itemResponse](t, env.do(t, http.MethodGet, "/api/shopping-lists/"+list.ID+"/shopping-items/"+milk.ID, alice, nil))
	if got.Purchased {
		t.Error("milk should remain unpurchased after rejected bulk request")
	}
}

func TestRouter_MarkBulkPurchased_Success(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, alice := env.createUser(t, "alice", false)

	list := env.createList(t, alice, "Groceries")
	milk := env.createItem(t, alice, list.ID, "milk")
	eggs := env.createItem(t, alice, list.ID, "eggs")

	w := env.do(t, http.MethodPatch, "/api/shopping-items/mark-bulk-purchased", alice,
		map[string][]string{"shopping_items": {milk.ID, eggs.ID}})
	expectStatus(t, w, http.StatusOK)
	if body := decodeInto[bulkPurchaseResponse](t, w); body.Purchased != 2 {
		t.Errorf("purchased = %d, want 2", body.Purchased)
	}

	got := decodeInto[listResponse](t, env.do(t, http.MethodGet, "/api/shopping-lists/"+list.ID, alice, nil))
	if len(got.UnpurchasedItems) != 0 {
		t.Errorf("unpurchased_items = %+v, want empty", got.UnpurchasedItems)
	}
}

func TestRouter_DeleteAllPurchased_ScopedToCaller(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, alice := env.createUser(t, "alice", false)
	_, bob := env.createUser(t, "bob", false)

	aliceList := env.createList(t, alice, "Alice's")
	aliceMilk := env.createItem(t, alice, aliceList.ID, "milk")
	env.createItem(t, alice, aliceList.ID, "eggs")
	env.purchase(t, alice, aliceList.ID, aliceMilk.ID)

	bobList := env.createList(t, bob, "Bob's")
	bobMilk := env.createItem(t, bob, bobList.ID, "milk")
	env.purchase(t, bob, bobList.ID, bobMilk.ID)

	expectStatus(t, env.do(t, http.MethodDelete, "/api/shopping-items/delete-all-purchased", alice, nil), http.StatusNoContent)

	aliceItems := decodeInto[itemPage](t, env.do(t, http.MethodGet, "/api/shopping-lists/"+aliceList.ID+"/shopping-items", alice, nil))
	if aliceItems.Count != 1 || aliceItems.Results[0].Name != "eggs" {
		t.Errorf("alice items = %+v, want only eggs", aliceItems.Results)
	}
	expectStatus(t, env.do(t, http.MethodGet, "/api/shopping-lists/"+bobList.ID+"/shopping-items/"+bobMilk.ID, bob, nil), http.StatusOK)
}

// --- ページネーション ---

func TestRouter_ListPagination(t *testing.T) {
	env := newTestEnv(t, envOptions{listPageSize: 2})
	_, alice := env.createUser(t, "alice", false)

	for _, name := range []string{"one", "two", "three"} {
		env.createList(t, alice, name)
	}

	first := decodeInto[listPage](t, env.do(t, http.MethodGet, "/api/shopping-lists", alice, nil))
	if first.Count != 3 || len(first.Results) != 2 {
		t.Fatalf("first page = %+v", first)
	}
	if first.Next == nil || *first.Next != "/api/shopping-lists?page=2" {
		t.Errorf("next = %v, want /api/shopping-lists?page=2", first.Next)
	}
	if first.Previous != nil {
		t.Errorf("previous = %v, want nil", *first.Previous)
	}

	second := decodeInto[listPage](t, env.do(t, http.MethodGet, "/api/shopping-lists?page=2", alice, nil))
	if len(second.Results) != 1 || second.Next != nil {
		t.Errorf("second page = %+v", second)
	}
	if second.Previous == nil || *second.Previous != "/api/shopping-lists" {
		t.Errorf("previous = %v, want /api/shopping-lists", second.Previous)
	}

	expectStatus(t, env.do(t, http.MethodGet, "/api/shopping-lists?page=3", alice, nil), http.StatusNotFound)
}

func TestRouter_EmptyCollection_FirstPageOK(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, alice := env.createUser(t, "alice", false)

	w := env.do(t, http.MethodGet, "/api/shopping-lists", alice, nil)

	expectStatus(t, w, http.StatusOK)
	if page := decodeInto[listPage](t, w); page.Count != 0 || len(page.Results) != 0 {
		t.Errorf("unexpected page: %+v", page)
	}
}

// --- スロットル ---

func TestRouter_Throttle_Returns429(t *testing.T) {
	env := newTestEnv(t, envOptions{rateLimit: middleware.RateLimiterConfig{PerMinute: 2, PerDay: 100}})
	_, alice := env.createUser(t, "alice", false)
	_, bob := env.createUser(t, "bob", false)

	expectStatus(t, env.do(t, http.MethodGet, "/api/users/me", alice, nil), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodGet, "/api/users/me", alice, nil), http.StatusOK)

	w := env.do(t, http.MethodGet, "/api/users/me", alice, nil)
	expectStatus(t, w, http.StatusTooManyRequests)
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	// 上限はユーザーごと
	expectStatus(t, env.do(t, http.MethodGet, "/api/users/me", bob, nil), http.StatusOK)
}

// --- ルーティング ---

func TestRouter_TrailingSlashAccepted(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, alice := env.createUser(t, "alice", false)

	list := env.createList(t, alice, "Groceries")

	expectStatus(t, env.do(t, http.MethodGet, "/api/shopping-lists/", alice, nil), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodGet, "/api/shopping-lists/"+list.ID+"/", alice, nil), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodGet, "/api/shopping-lists/"+list.ID+"/shopping-items/", alice, nil), http.StatusOK)
}

func TestRouter_Health(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	w := env.do(t, http.MethodGet, "/health", "", nil)

	expectStatus(t, w, http.StatusOK)
}

func TestRouter_RenameAndDeleteList(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, alice := env.createUser(t, "alice", false)

	list := env.createList(t, alice, "Groceries")
	env.createItem(t, alice, list.ID, "milk")

	expectStatus(t, env.do(t, http.MethodPut, "/api/shopping-lists/"+list.ID, alice, map[string]string{}), http.StatusBadRequest)

	w := env.do(t, http.MethodPatch, "/api/shopping-lists/"+list.ID, alice, map[string]string{"name": "<b>Weekly</b>"})
	expectStatus(t, w, http.StatusOK)
	if got := decodeInto[listResponse](t, w); got.Name != "Weekly" {
		t.Errorf("name = %q, want Weekly", got.Name)
	}

	expectStatus(t, env.do(t, http.MethodDelete, "/api/shopping-lists/"+list.ID, alice, nil), http.StatusNoContent)
	expectStatus(t, env.do(t, http.MethodGet, "/api/shopping-lists/"+list.ID, alice, nil), http.StatusNotFound)
}

func TestRouter_MarkBulkPurchased_SameIDDifferentCase_CountsOnce(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, alice := env.createUser(t, "alice", false)

	list := env.createList(t, alice, "Groceries")
	milk := env.createItem(t, alice, list.ID, "milk")

	w := env.do(t, http.MethodPatch, "/api/shopping-items/mark-bulk-purchased", alice,
		map[string][]string{"shopping_items": {milk.ID, strings.ToUpper(milk.ID)}})
	expectStatus(t, w, http.StatusOK)
	if body := decodeInto[bulkPurchaseResponse](t, w); body.Purchased != 1 {
		t.Errorf("purchased = %d, want 1", body.Purchased)
	}
}
