package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without wrapped error",
			err:  New("UNKNOWN_ALIAS", "semester alias is not registered", http.StatusNotFound),
			want: "UNKNOWN_ALIAS: semester alias is not registered",
		},
		{
			name: "with wrapped error",
			err:  Wrap(fmt.Errorf("db error"), "PROVISIONING_FAILED", "create database failed", http.StatusBadRequest),
			want: "PROVISIONING_FAILED: create database failed: db error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap(inner, "CODE", "msg", 500)

	if !errors.Is(appErr, inner) {
		t.Error("errors.Is should match inner error")
	}
}

func TestIsAppError(t *testing.T) {
	appErr := NotFound("NOT_FOUND", "resource not found")
	wrapped := fmt.Errorf("wrapped: %w", appErr)

	got, ok := IsAppError(wrapped)
	if !ok {
		t.Fatal("IsAppError should return true for wrapped AppError")
	}
	if got.Code != "NOT_FOUND" {
		t.Errorf("Code = %q, want NOT_FOUND", got.Code)
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantStatus int
	}{
		{"NotFound", NotFound("NF", "not found"), http.StatusNotFound},
		{"BadRequest", BadRequest("BR", "bad request"), http.StatusBadRequest},
		{"Unauthorized", Unauthorized("UA", "unauthorized"), http.StatusUnauthorized},
		{"Forbidden", Forbidden("FB", "forbidden"), http.StatusForbidden},
		{"Conflict", Conflict("CF", "conflict"), http.StatusConflict},
		{"Internal", Internal("IE", "internal"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.HTTPStatus != tt.wantStatus {
				t.Errorf("HTTPStatus = %d, want %d", tt.err.HTTPStatus, tt.wantStatus)
			}
		})
	}
}

func TestTaxonomyConstructors(t *testing.T) {
	if got := ErrNoCurrentSemesterf(); got.HTTPStatus != http.StatusConflict || got.Code != CodeNoCurrentSemester {
		t.Errorf("ErrNoCurrentSemesterf() = %v", got)
	}

	unknown := ErrUnknownAliasf("sem_2019_s1")
	if unknown.HTTPStatus != http.StatusNotFound {
		t.Errorf("ErrUnknownAliasf status = %d, want 404", unknown.HTTPStatus)
	}
	if unknown.Params["alias"] != "sem_2019_s1" {
		t.Errorf("ErrUnknownAliasf params = %v", unknown.Params)
	}

	drop := ErrCannotDropCurrentf("sem_2025_s2")
	if drop.HTTPStatus != http.StatusBadRequest || drop.Code != CodeCannotDropCurrent {
		t.Errorf("ErrCannotDropCurrentf() = %v", drop)
	}
}
