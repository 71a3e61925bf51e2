package prefs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semas/internal/kvstore"
)

func TestDefaults(t *testing.T) {
	svc := NewService(kvstore.NewMemoryStore())
	p, err := svc.Get(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.Equal(t, LanguageEnglish, p.Language)
	assert.Equal(t, ThemeSystem, p.Theme)
	assert.False(t, p.OnboardingSeen)

	_, err = svc.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestUpdatePersists(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	svc := NewService(kv)

	ar := LanguageArabic
	dark := ThemeDark
	seen := true
	p, err := svc.Update(ctx, "dev-1", Update{Language: &ar, Theme: &dark, OnboardingSeen: &seen})
	require.NoError(t, err)
	assert.Equal(t, "rtl", p.Language.Direction())

	// A new service over the same storage sees the same values.
	again, err := NewService(kv).Get(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, Prefs{Language: LanguageArabic, Theme: ThemeDark, OnboardingSeen: true}, again)

	other, err := svc.Get(ctx, "dev-2")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), other)
}

func TestUpdateRejectsUnknownValues(t *testing.T) {
	svc := NewService(kvstore.NewMemoryStore())
	fr := Language("fr")
	_, err := svc.Update(context.Background(), "dev-1", Update{Language: &fr})
	assert.ErrorIs(t, err, ErrInvalidLanguage)

	neon := Theme("neon")
	_, err = svc.Update(context.Background(), "dev-1", Update{Theme: &neon})
	assert.ErrorIs(t, err, ErrInvalidTheme)
}

func TestCorruptPrefsFallBackToDefaults(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, "prefs:dev-1", `{"language":"xx","theme":"dark"}`, 0))
	p, err := NewService(kv).Get(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, LanguageEnglish, p.Language)
	assert.Equal(t, ThemeDark, p.Theme)

	require.NoError(t, kv.Set(ctx, "prefs:dev-2", "garbage", 0))
	p, err = NewService(kv).Get(ctx, "dev-2")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), p)
}

func TestSelectedServiceIsConsumedOnce(t *testing.T) {
	ctx := context.Background()
	svc := NewService(kvstore.NewMemoryStore())

	_, ok, err := svc.ConsumeSelectedService(ctx, "dev-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.SetSelectedService(ctx, "dev-1", "Termite Defense"))
	got, ok, err := svc.ConsumeSelectedService(ctx, "dev-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Termite Defense", got)

	_, ok, err = svc.ConsumeSelectedService(ctx, "dev-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.SetSelectedService(ctx, "dev-1", "Rodent Exclusion"))
	require.NoError(t, svc.SetSelectedService(ctx, "dev-1", " "))
	_, ok, err = svc.ConsumeSelectedService(ctx, "dev-1")
	require.NoError(t, err)
	assert.False(t, ok, "blank selection clears the hint")
}

func TestSelectedServicePeekDoesNotClear(t *testing.T) {
	ctx := context.Background()
	svc := NewService(kvstore.NewMemoryStore())
	require.NoError(t, svc.SetSelectedService(ctx, "dev-1", "Termite Defense"))

	for i := 0; i < 2; i++ {
		got, ok, err := svc.SelectedService(ctx, "dev-1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "Termite Defense", got)
	}

	require.NoError(t, svc.ClearSelectedService(ctx, "dev-1"))
	_, ok, err := svc.SelectedService(ctx, "dev-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = svc.SelectedService(ctx, "")
	assert.ErrorIs(t, err, ErrNoDevice)
}
