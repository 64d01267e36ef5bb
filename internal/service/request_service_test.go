package service

import (
	"encoding/json"
	"testing"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestService(t *testing.T) {
	f := newFixture(t)
	ann := f.user("Ann", "ann@example.com")
	bob := f.user("Bob", "bob@example.com")

	req, err := f.requests.CreateRequest(f.ctx, ann.ID, "need a ladder")
	require.NoError(t, err)
	assert.True(t, f.now.Equal(req.Created))

	_, err = f.requests.CreateRequest(f.ctx, ann.ID, " ")
	assert.ErrorIs(t, err, domain.ErrInvalid)
	_, err = f.requests.CreateRequest(f.ctx, 99, "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	bobReq, err := f.requests.CreateRequest(f.ctx, bob.ID, "need a tent")
	require.NoError(t, err)

	answer, err := f.items.CreateItem(f.ctx, bob.ID, &models.Item{Name: "Ladder", Description: "3m", Available: models.Ptr(true), RequestID: &req.ID})
	require.NoError(t, err)

	own, err := f.requests.ListOwnRequests(f.ctx, ann.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Len(t, own[0].Items, 1)
	assert.Equal(t, answer.ID, own[0].Items[0].ID)

	others, err := f.requests.ListOtherRequests(f.ctx, ann.ID, models.Page{Size: 10})
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, bobReq.ID, others[0].ID)
	assert.NotNil(t, others[0].Items)

	raw, err := json.Marshal(others[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"items":[]`)

	got, err := f.requests.GetRequest(f.ctx, req.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "need a ladder", got.Description)
	assert.Len(t, got.Items, 1)

	_, err = f.requests.GetRequest(f.ctx, 99, bob.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.requests.GetRequest(f.ctx, req.ID, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.requests.ListOwnRequests(f.ctx, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.requests.ListOtherRequests(f.ctx, 99, models.Page{Size: 10})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
