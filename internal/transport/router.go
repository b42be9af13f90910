package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/digital-diner/backend/internal/auth"
	"github.com/digital-diner/backend/internal/handler"
)

type Handlers struct {
	Order *handler.OrderHandler
	Menu  *handler.MenuHandler
	User  *handler.UserHandler
}

func NewRouter(h Handlers, tokens *auth.Manager) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", func(api chi.Router) {
		h.Menu.RegisterRoutes(api)
		h.Order.RegisterRoutes(api)
		h.User.RegisterRoutes(api)

		api.Group(func(protected chi.Router) {
			protected.Use(tokens.Authenticate)
			h.User.RegisterProtectedRoutes(protected)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(tokens.Authenticate)

			// Заказами занимается и персонал, меню меняет только администратор
			admin.Group(func(staff chi.Router) {
				staff.Use(auth.RequireStaff)
				h.Order.RegisterAdminRoutes(staff)
			})
			admin.Group(func(root chi.Router) {
				root.Use(auth.RequireAdmin)
				h.Menu.RegisterAdminRoutes(root)
			})
		})
	})

	return r
}
