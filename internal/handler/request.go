package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/shoplist/internal/middleware"
	"github.com/hitoshi/shoplist/internal/model"
)

// maxRequestBodyBytes はリクエストボディの上限サイズ。
const maxRequestBodyBytes = 1 << 20

var validate = newValidator()

// newValidator はエラーのフィールド名にJSONタグ名を使うvalidatorを生成する。
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate はJSONボディをdstにデコードし、validateタグで検証する。
// 戻り値は*model.APIError（nilの場合は成功）。
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) *model.APIError {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return model.NewInvalidRequestError()
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return toValidationError(verrs[0])
		}
		return model.NewInvalidRequestError()
	}
	return nil
}

// toValidationError はvalidatorのエラーをVALIDATION_ERRORに変換する。
func toValidationError(fe validator.FieldError) *model.APIError {
	switch fe.Tag() {
	case "required":
		return model.NewValidationError(fe.Field(), "This field is required.")
	case "max":
		return model.NewValidationError(fe.Field(), fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param()))
	default:
		return model.NewValidationError(fe.Field(), "Invalid value.")
	}
}

// requireActor は認証済みユーザーを取得する。取得できない場合は401を書き込みfalseを返す。
func requireActor(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return model.Actor{}, false
	}
	return actor, true
}

// listIDParam はURLのリストIDを正規形で取得する。UUID形式でない場合は404を書き込みfalseを返す。
func listIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "id")
	id, ok := model.NormalizeID(raw)
	if !ok {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewListNotFoundError(raw))
		return "", false
	}
	return id, true
}

// itemIDParam はURLのアイテムIDを正規形で取得する。UUID形式でない場合は404を書き込みfalseを返す。
func itemIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "itemID")
	id, ok := model.NormalizeID(raw)
	if !ok {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewItemNotFoundError(raw))
		return "", false
	}
	return id, true
}

// pageParam はクエリの?page=Nを取得する。未指定は1。整数でない場合は404を書き込みfalseを返す。
func pageParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, true
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewInvalidPageError())
		return 0, false
	}
	return page, true
}
