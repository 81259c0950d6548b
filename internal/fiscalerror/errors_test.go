package fiscalerror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreconditionError(t *testing.T) {
	err := &PreconditionError{Field: "company", Reason: "company name is required"}

	assert.Equal(t, "precondition failed for company: company name is required", err.Error())
	assert.True(t, IsPrecondition(err))
	assert.True(t, IsPrecondition(fmt.Errorf("organize: %w", err)))
	assert.False(t, IsSkippable(err))
}

func TestUnreadableDocumentError(t *testing.T) {
	err := &UnreadableDocumentError{Name: "vazio.txt", Reason: "no content", Err: ErrEmptyContent}

	assert.Contains(t, err.Error(), "vazio.txt")
	assert.Contains(t, err.Error(), "empty content")
	assert.True(t, errors.Is(err, ErrEmptyContent))
	assert.True(t, IsSkippable(err))
	assert.False(t, IsPrecondition(err))

	bare := &UnreadableDocumentError{Name: "x.xml", Reason: "malformed"}
	assert.Equal(t, "unreadable document 'x.xml': malformed", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestArchiveExpansionError(t *testing.T) {
	cause := errors.New("zip: not a valid zip file")
	err := &ArchiveExpansionError{Name: "lote.zip", Err: cause}

	assert.Equal(t, "failed to expand archive 'lote.zip': zip: not a valid zip file", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsSkippable(fmt.Errorf("wrapped: %w", err)))
}

func TestClassificationError(t *testing.T) {
	cause := errors.New("boom")
	err := &ClassificationError{Name: "a.xml", Strategy: "XMLContent", Err: cause}

	assert.Equal(t, "classification of a.xml failed in XMLContent: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsSkippable(err))
}
