package repository

import (
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"

	"thermostab/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestOperatorRepository_Create(t *testing.T) {
	tests := []struct {
		name        string
		username    string
		hash        string
		mockExpect  func(sqlmock.Sqlmock)
		wantID      int
		errContains string
	}{
		{
			name:     "success",
			username: "alice",
			hash:     "h123",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertOperatorSQL)).
					WithArgs("alice", "h123").
					WillReturnResult(sqlmock.NewResult(42, 1))
			},
			wantID: 42,
		},
		{
			name:     "exec error",
			username: "bob",
			hash:     "h456",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertOperatorSQL)).
					WithArgs("bob", "h456").
					WillReturnError(errors.New("UNIQUE constraint failed"))
			},
			errContains: "insert operator",
		},
		{
			name:     "last insert id error",
			username: "carol",
			hash:     "h789",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertOperatorSQL)).
					WithArgs("carol", "h789").
					WillReturnResult(sqlmock.NewErrorResult(errors.New("no last id")))
			},
			errContains: "get last insert id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, _, _, repo := newMock(t)
			tt.mockExpect(mock)

			id, err := repo.Create(tt.username, tt.hash)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("expected error containing %q, got %v", tt.errContains, err)
				}
				if id != 0 {
					t.Fatalf("expected id=0 on error, got %d", id)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tt.wantID {
				t.Fatalf("unexpected id: want %d, got %d", tt.wantID, id)
			}
		})
	}
}

func TestOperatorRepository_GetByUsername(t *testing.T) {
	tests := []struct {
		name        string
		username    string
		mockExpect  func(sqlmock.Sqlmock)
		want        *models.Operator
		errContains string
	}{
		{
			name:     "found",
			username: "alice",
			mockExpect: func(m sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "username", "password_hash"}).AddRow(7, "alice", "h123")
				m.ExpectQuery(regexp.QuoteMeta(selectOperatorByUsernameSQL)).WithArgs("alice").WillReturnRows(rows)
			},
			want: &models.Operator{ID: 7, Username: "alice", PasswordHash: "h123"},
		},
		{
			name:     "not found",
			username: "missing",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(selectOperatorByUsernameSQL)).WithArgs("missing").WillReturnError(sql.ErrNoRows)
			},
		},
		{
			name:     "query error",
			username: "bob",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(selectOperatorByUsernameSQL)).WithArgs("bob").WillReturnError(errors.New("db query failed"))
			},
			errContains: "select operator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, _, _, repo := newMock(t)
			tt.mockExpect(mock)

			op, err := repo.GetByUsername(tt.username)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("expected error containing %q, got %v", tt.errContains, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want == nil {
				if op != nil {
					t.Fatalf("expected nil operator, got %+v", op)
				}
				return
			}
			if op == nil || *op != *tt.want {
				t.Fatalf("unexpected operator: want %+v, got %+v", tt.want, op)
			}
		})
	}
}

func TestOperatorRepository_Count(t *testing.T) {
	mock, _, _, repo := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(countOperatorsSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	if n, err := repo.Count(); err != nil || n != 3 {
		t.Fatalf("Count: n=%d err=%v", n, err)
	}

	mock.ExpectQuery(regexp.QuoteMeta(countOperatorsSQL)).WillReturnError(errors.New("db locked"))
	if _, err := repo.Count(); err == nil || !strings.Contains(err.Error(), "count operators") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
