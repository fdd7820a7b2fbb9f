package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/shoplist/internal/model"
)

// ListServiceInterface は買い物リストハンドラーが必要とするサービスインターフェース。
type ListServiceInterface interface {
	List(ctx context.Context, actor model.Actor, page int) (*model.Page[*model.ShoppingList], error)
	Create(ctx context.Context, actor model.Actor, name string) (*model.ShoppingList, error)
	Get(ctx context.Context, actor model.Actor, id string) (*model.ShoppingList, error)
	// Rename はnameがnilの場合は変更しない。
	Rename(ctx context.Context, actor model.Actor, id string, name *string) (*model.ShoppingList, error)
	Delete(ctx context.Context, actor model.Actor, id string) error
	AddMembers(ctx context.Context, actor model.Actor, id string, memberIDs []string) (*model.ShoppingList, error)
	RemoveMembers(ctx context.Context, actor model.Actor, id string, memberIDs []string) (*model.ShoppingList, error)
}

// ListHandler は買い物リストのHTTPハンドラー。
type ListHandler struct {
	service ListServiceInterface
}

// NewListHandler はListHandlerを生成する。
func NewListHandler(service ListServiceInterface) *ListHandler {
	return &ListHandler{service: service}
}

// --- リクエスト型 ---

type createListRequest struct {
	Name *string `json:"name" validate:"required"`
}

type patchListRequest struct {
	Name *string `json:"name"`
}

type membersRequest struct {
	Members []string `json:"members" validate:"required"`
}

// --- レスポンス型 ---

type unpurchasedItemResponse struct {
	Name string `json:"name"`
}

type memberResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// listResponse は買い物リストのAPIレスポンス。
type listResponse struct {
	ID               string                    `json:"id"`
	Name             string                    `json:"name"`
	LastInteraction  time.Time                 `json:"last_interaction"`
	UnpurchasedItems []unpurchasedItemResponse `json:"unpurchased_items"`
	Members          []memberResponse          `json:"members"`
}

// listMembersResponse はメンバー追加・削除のAPIレスポンス。membersはユーザーID。
type listMembersResponse struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// ListLists はactorがメンバーのリストをlast_interaction降順で返す。
// GET /api/shopping-lists
func (h *ListHandler) ListLists(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	page, ok := pageParam(w, r)
	if !ok {
		return
	}

	result, err := h.service.List(r.Context(), actor, page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newPageResponse(r, result, toListResponse))
}

// CreateList はリストを作成する。作成者が最初のメンバーになる。
// POST /api/shopping-lists
func (h *ListHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req createListRequest
	if apiErr := decodeAndValidate(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	list, err := h.service.Create(r.Context(), actor, *req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toListResponse(list))
}

// GetList はリスト詳細を返す。
// GET /api/shopping-lists/{id}
func (h *ListHandler) GetList(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := listIDParam(w, r)
	if !ok {
		return
	}

	list, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toListResponse(list))
}

// ReplaceList はリスト名を更新する。nameは必須。
// PUT /api/shopping-lists/{id}
func (h *ListHandler) ReplaceList(w http.ResponseWriter, r *http.Request) {
	var req createListRequest
	h.rename(w, r, &req, func() *string { return req.Name })
}

// PatchList はリスト名を部分更新する。nameがない場合は何も変更しない。
// PATCH /api/shopping-lists/{id}
func (h *ListHandler) PatchList(w http.ResponseWriter, r *http.Request) {
	var req patchListRequest
	h.rename(w, r, &req, func() *string { return req.Name })
}

// rename はPUT/PATCH共通の更新処理。reqにデコードした後nameを取り出す。
func (h *ListHandler) rename(w http.ResponseWriter, r *http.Request, req any, name func() *string) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := listIDParam(w, r)
	if !ok {
		return
	}

	if apiErr := decodeAndValidate(w, r, req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	list, err := h.service.Rename(r.Context(), actor, id, name())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toListResponse(list))
}

// DeleteList はリストを削除する。
// DELETE /api/shopping-lists/{id}
func (h *ListHandler) DeleteList(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := listIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddMembers はメンバーを追加する。
// PUT /api/shopping-lists/{id}/add-members
func (h *ListHandler) AddMembers(w http.ResponseWriter, r *http.Request) {
	h.mutateMembers(w, r, h.service.AddMembers)
}

// RemoveMembers はメンバーを外す。
// PUT /api/shopping-lists/{id}/remove-members
func (h *ListHandler) RemoveMembers(w http.ResponseWriter, r *http.Request) {
	h.mutateMembers(w, r, h.service.RemoveMembers)
}

type membersMutation func(ctx context.Context, actor model.Actor, id string, memberIDs []string) (*model.ShoppingList, error)

func (h *ListHandler) mutateMembers(w http.ResponseWriter, r *http.Request, mutate membersMutation) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := listIDParam(w, r)
	if !ok {
		return
	}

	var req membersRequest
	if apiErr := decodeAndValidate(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	list, err := mutate(r.Context(), actor, id, req.Members)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listMembersResponse{
		ID:      list.ID,
		Name:    list.Name,
		Members: list.MemberIDs(),
	})
}

// --- ヘルパー関数 ---

// toListResponse はmodel.ShoppingListからAPIレスポンスに変換する。
func toListResponse(list *model.ShoppingList) listResponse {
	resp := listResponse{
		ID:               list.ID,
		Name:             list.Name,
		LastInteraction:  list.LastInteraction,
		UnpurchasedItems: make([]unpurchasedItemResponse, 0, len(list.UnpurchasedItemNames)),
		Members:          make([]memberResponse, 0, len(list.Members)),
	}
	for _, name := range list.UnpurchasedItemNames {
		resp.UnpurchasedItems = append(resp.UnpurchasedItems, unpurchasedItemResponse{Name: name})
	}
	for _, m := range list.Members {
		resp.Members = append(resp.Members, memberResponse{ID: m.ID, Username: m.Username})
	}
	return resp
}
