package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/shoplist/internal/model"
)

// ItemServiceInterface は買い物アイテムハンドラーが必要とするサービスインターフェース。
type ItemServiceInterface interface {
	List(ctx context.Context, actor model.Actor, listID string, page int) (*model.Page[*model.ShoppingItem], error)
	Create(ctx context.Context, actor model.Actor, listID, name string, purchased bool) (*model.ShoppingItem, error)
	Get(ctx context.Context, actor model.Actor, listID, itemID string) (*model.ShoppingItem, error)
	Update(ctx context.Context, actor model.Actor, listID, itemID string, patch model.ItemPatch) (*model.ShoppingItem, error)
	Delete(ctx context.Context, actor model.Actor, listID, itemID string) error
	DeleteAllPurchased(ctx context.Context, actor model.Actor) (int64, error)
	MarkBulkPurchased(ctx context.Context, actor model.Actor, itemIDs []string) (int, error)
}

// ItemHandler は買い物アイテムのHTTPハンドラー。
type ItemHandler struct {
	service ItemServiceInterface
}

// NewItemHandler はItemHandlerを生成する。
func NewItemHandler(service ItemServiceInterface) *ItemHandler {
	return &ItemHandler{service: service}
}

// --- リクエスト型 ---

type putItemRequest struct {
	Name      *string `json:"name" validate:"required"`
	Purchased *bool   `json:"purchased"`
}

type patchItemRequest struct {
	Name      *string `json:"name"`
	Purchased *bool   `json:"purchased"`
}

type bulkPurchaseRequest struct {
	ShoppingItems []string `json:"shopping_items" validate:"required"`
}

// --- レスポンス型 ---

// itemResponse は買い物アイテムのAPIレスポンス。
type itemResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Purchased    bool   `json:"purchased"`
	ShoppingList string `json:"shopping_list"`
}

type bulkPurchaseResponse struct {
	Purchased int `json:"purchased"`
}

// ListItems はリストのアイテムを未購入を先にページ単位で返す。
// GET /api/shopping-lists/{id}/shopping-items
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	listID, ok := listIDParam(w, r)
	if !ok {
		return
	}
	page, ok := pageParam(w, r)
	if !ok {
		return
	}

	result, err := h.service.List(r.Context(), actor, listID, page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newPageResponse(r, result, toItemResponse))
}

// CreateItem はリストにアイテムを追加する。
// POST /api/shopping-lists/{id}/shopping-items
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	listID, ok := listIDParam(w, r)
	if !ok {
		return
	}

	var req putItemRequest
	if apiErr := decodeAndValidate(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	purchased := req.Purchased != nil && *req.Purchased

	item, err := h.service.Create(r.Context(), actor, listID, *req.Name, purchased)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toItemResponse(item))
}

// GetItem はアイテム詳細を返す。
// GET /api/shopping-lists/{id}/shopping-items/{itemID}
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	actor, listID, itemID, ok := itemTarget(w, r)
	if !ok {
		return
	}

	item, err := h.service.Get(r.Context(), actor, listID, itemID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// ReplaceItem はアイテムを更新する。nameは必須、purchasedは任意。
// PUT /api/shopping-lists/{id}/shopping-items/{itemID}
func (h *ItemHandler) ReplaceItem(w http.ResponseWriter, r *http.Request) {
	var req putItemRequest
	h.update(w, r, &req, func() model.ItemPatch {
		return model.ItemPatch{Name: req.Name, Purchased: req.Purchased}
	})
}

// PatchItem は指定されたフィールドのみ更新する。
// PATCH /api/shopping-lists/{id}/shopping-items/{itemID}
func (h *ItemHandler) PatchItem(w http.ResponseWriter, r *http.Request) {
	var req patchItemRequest
	h.update(w, r, &req, func() model.ItemPatch {
		return model.ItemPatch{Name: req.Name, Purchased: req.Purchased}
	})
}

func (h *ItemHandler) update(w http.ResponseWriter, r *http.Request, req any, patch func() model.ItemPatch) {
	actor, listID, itemID, ok := itemTarget(w, r)
	if !ok {
		return
	}

	if apiErr := decodeAndValidate(w, r, req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	item, err := h.service.Update(r.Context(), actor, listID, itemID, patch())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// DeleteItem はアイテムを削除する。
// DELETE /api/shopping-lists/{id}/shopping-items/{itemID}
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	actor, listID, itemID, ok := itemTarget(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, listID, itemID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteAllPurchased はactorがメンバーの全リストから購入済みアイテムを削除する。
// DELETE /api/shopping-items/delete-all-purchased
func (h *ItemHandler) DeleteAllPurchased(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	if _, err := h.service.DeleteAllPurchased(r.Context(), actor); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkBulkPurchased は指定アイテムをまとめて購入済みにする。
// PATCH /api/shopping-items/mark-bulk-purchased
func (h *ItemHandler) MarkBulkPurchased(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req bulkPurchaseRequest
	if apiErr := decodeAndValidate(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	changed, err := h.service.MarkBulkPurchased(r.Context(), actor, req.ShoppingItems)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bulkPurchaseResponse{Purchased: changed})
}

// --- ヘルパー関数 ---

// itemTarget はアイテム詳細ルートのactor、リストID、アイテムIDを取り出す。
func itemTarget(w http.ResponseWriter, r *http.Request) (model.Actor, string, string, bool) {
	actor, ok := requireActor(w, r)
	if !ok {
		return model.Actor{}, "", "", false
	}
	listID, ok := listIDParam(w, r)
	if !ok {
		return model.Actor{}, "", "", false
	}
	itemID, ok := itemIDParam(w, r)
	if !ok {
		return model.Actor{}, "", "", false
	}
	return actor, listID, itemID, true
}

// toItemResponse はmodel.ShoppingItemからAPIレスポンスに変換する。
func toItemResponse(item *model.ShoppingItem) itemResponse {
	return itemResponse{
		ID:           item.ID,
		Name:         item.Name,
		Purchased:    item.Purchased,
		ShoppingList: item.ShoppingListID,
	}
}
