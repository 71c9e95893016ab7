package validation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	app_errors "chatstore/internal/errors"
	"chatstore/internal/model"
	"chatstore/internal/validation"
)

func TestChatID(t *testing.T) {
	valid := []string{"abc", "0f8fad5b-d9cb-469f-a165-70867728950e", "chat_1", strings.Repeat("x", 128)}
	for _, id := range valid {
		assert.NoError(t, validation.ChatID(id), id)
	}

	invalid := []string{"", "../etc/passwd", "a/b", `a\b`, "with space", ".hidden", strings.Repeat("x", 129)}
	for _, id := range invalid {
		err := validation.ChatID(id)
		assert.ErrorIs(t, err, app_errors.ErrInvalidArgument, id)
	}
}

func TestStruct(t *testing.T) {
	type request struct {
		ChatID   string          `validate:"required,chatid"`
		Messages []model.Message `validate:"required,min=1,dive"`
	}

	assert.NoError(t, validation.Struct(request{
		ChatID:   "c1",
		Messages: []model.Message{{Role: model.RoleUser}},
	}))

	err := validation.Struct(request{ChatID: "c1", Messages: []model.Message{{}}})
	assert.ErrorIs(t, err, app_errors.ErrInvalidArgument)
	assert.ErrorContains(t, err, "Field 'Role' failed on the 'required' tag")

	err = validation.Struct(request{ChatID: "a/b", Messages: []model.Message{{Role: "user"}}})
	assert.ErrorContains(t, err, "Field 'ChatID' failed on the 'chatid' tag")
}
