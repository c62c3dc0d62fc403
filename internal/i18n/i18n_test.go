package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "AppTitle")
	if got != "Proctor" {
		t.Errorf("T(AppTitle) = %q, want 'Proctor'", got)
	}

	got = T(ctx, "NotifyCaptureUnavailable")
	if got != "Could not access webcam. Proctoring inactive." {
		t.Errorf("T(NotifyCaptureUnavailable) = %q", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	got := T(ctx, "AppTitle")
	if got != "Проктор" {
		t.Errorf("T(AppTitle) = %q, want 'Проктор'", got)
	}

	got = T(ctx, "NotifyLoggedOut")
	if got != "Вы успешно вышли" {
		t.Errorf("T(NotifyLoggedOut) = %q, want 'Вы успешно вышли'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "QuestionsAvailable", 1)
	if got1 != "1 question available." {
		t.Errorf("Tp(QuestionsAvailable, 1) = %q, want '1 question available.'", got1)
	}

	got5 := Tp(ctx, "QuestionsAvailable", 5)
	if got5 != "5 questions available." {
		t.Errorf("Tp(QuestionsAvailable, 5) = %q, want '5 questions available.'", got5)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "NotifyWelcome", map[string]any{"Name": "Alex Student"})
	if got != "Welcome back, Alex Student" {
		t.Errorf("Td(NotifyWelcome) = %q, want 'Welcome back, Alex Student'", got)
	}

	got = Td(ctx, "ProctorAlert", map[string]any{"Event": T(ctx, "IntegrityNoise")})
	if got != "Proctor Alert: Background noise detected" {
		t.Errorf("Td(ProctorAlert) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestContextWithoutLocalizerFallsBackToEnglish(t *testing.T) {
	initLang(t, "ru")

	got := T(context.Background(), "NotifyTimeUp")
	if got != "Time is up." {
		t.Errorf("T(NotifyTimeUp) = %q, want 'Time is up.'", got)
	}
}

func TestMiddleware(t *testing.T) {
	initLang(t, "ru")

	var got string
	h := Middleware("ru")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "NotifyTimeUp")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got != "Время вышло." {
		t.Errorf("expected Russian translation, got %q", got)
	}
}
