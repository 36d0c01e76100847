package menu

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/teamhub-backend/pkg/auth"
	"github.com/angelmondragon/teamhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/teamhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
)

var (
	admin = auth.Actor{UserID: uuid.New(), Username: "root", IsSuperuser: true}
	user  = auth.Actor{UserID: uuid.New(), Username: "carol"}
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	return svc
}

func TestCreateAndListItems(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	rice, err := svc.Create(ctx, admin, CreateItemInput{Name: " Rice ", Kind: enums.MenuItemKindSide, Price: decimal.RequireFromString("2.5")})
	require.NoError(t, err)
	assert.Equal(t, "Rice", rice.Name)
	assert.Equal(t, 1, rice.MaxQuantity)

	_, err = svc.Create(ctx, admin, CreateItemInput{Name: "Kebab", Kind: enums.MenuItemKindFood, Price: decimal.RequireFromString("12"), MaxQuantity: 3})
	require.NoError(t, err)

	all, err := svc.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Kebab", all[0].Name)

	food := enums.MenuItemKindFood
	foods, err := svc.List(ctx, &food)
	require.NoError(t, err)
	require.Len(t, foods, 1)
	assert.Equal(t, 3, foods[0].MaxQuantity)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, user, CreateItemInput{Name: "Soup", Kind: enums.MenuItemKindFood})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Create(ctx, admin, CreateItemInput{Name: " ", Kind: enums.MenuItemKindFood})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, admin, CreateItemInput{Name: "Soup", Kind: "drink"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, admin, CreateItemInput{Name: "Soup", Kind: enums.MenuItemKindFood, Price: decimal.NewFromInt(-1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, admin, CreateItemInput{Name: "Soup", Kind: enums.MenuItemKindFood, MaxQuantity: -2})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateItem(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	item, err := svc.Create(ctx, admin, CreateItemInput{Name: "Stew", Kind: enums.MenuItemKindFood, Price: decimal.NewFromInt(8)})
	require.NoError(t, err)

	price := decimal.RequireFromString("9.75")
	limit := 2
	updated, err := svc.Update(ctx, admin, item.ID, UpdateItemInput{Price: &price, MaxQuantity: &limit})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(price))
	assert.Equal(t, 2, updated.MaxQuantity)
	assert.Equal(t, "Stew", updated.Name)

	_, err = svc.Update(ctx, admin, item.ID, UpdateItemInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Update(ctx, admin, uuid.New(), UpdateItemInput{Price: &price})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Update(ctx, user, item.ID, UpdateItemInput{Price: &price})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}
