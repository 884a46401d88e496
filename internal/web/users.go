package web

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/wikifront/internal/domain"
	"github.com/sidereusnuntius/wikifront/internal/service"
	"github.com/sidereusnuntius/wikifront/internal/validate"
	"github.com/sidereusnuntius/wikifront/internal/web/views"
)

const (
	ProfileRoute = "/profile"
	AdminRoute   = "/admin"
)

var versionsPage = domain.Page{Limit: 10}

// MyProfile shows the profile of the current user, or invites them to create one.
func MyProfile(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		p, err := h.service.MyProfile(ctx)
		if errors.Is(err, service.ErrNoProfile) {
			h.render(w, r, page{
				title: "Your profile",
				place: views.PlaceProfile,
				child: views.NoProfile(),
			})
			return
		}
		if err != nil {
			h.pageError(w, r, err, "profile")
			return
		}

		u, err := h.service.CurrentUser(ctx)
		if err != nil {
			h.pageError(w, r, err, "profile")
			return
		}
		versions, err := h.service.ProfileVersions(ctx, versionsPage)
		if err != nil {
			log.Warn().Err(err).Msg("failed to fetch profile versions")
		}

		h.render(w, r, page{
			title: u.Username,
			place: views.PlaceProfile,
			child: views.ProfileView(views.ProfileData{Profile: p, User: u, Versions: versions, Own: true}),
		})
	}
}

func UserProfile(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, ok := h.pathID(w, r, "id")
		if !ok {
			return
		}
		if id == h.currentUser() {
			http.Redirect(w, r, ProfileRoute, http.StatusSeeOther)
			return
		}

		p, err := h.service.UserProfile(ctx, id)
		if err != nil {
			h.pageError(w, r, err, "profile")
			return
		}
		var u domain.User
		if p.User != nil {
			u = *p.User
		} else if u, err = h.service.User(ctx, id); err != nil {
			h.pageError(w, r, err, "profile")
			return
		}
		versions, err := h.service.UserProfileVersions(ctx, id, versionsPage)
		if err != nil {
			log.Warn().Err(err).Stringer("user", id).Msg("failed to fetch profile versions")
		}

		h.render(w, r, page{
			title: u.Username,
			place: views.PlaceProfile,
			child: views.ProfileView(views.ProfileData{Profile: p, User: u, Versions: versions}),
		})
	}
}

func EditProfile(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := h.service.MyProfile(r.Context())
		data := views.ProfileFormData{Create: errors.Is(err, service.ErrNoProfile)}
		if err != nil && !data.Create {
			h.pageError(w, r, err, "profile")
			return
		}
		data.Bio = p.Bio
		data.AvatarURL = p.AvatarURL
		data.Website = p.SocialLinks["website"]
		h.renderProfileEditor(w, r, data, 0)
	}
}

// SaveProfile creates the profile of the current user if there is none yet, and updates it otherwise.
func SaveProfile(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := r.ParseForm(); err != nil {
			http.Error(w, "failed to parse form", http.StatusBadRequest)
			return
		}
		form := parseProfileForm(r)

		_, err := h.service.MyProfile(ctx)
		create := errors.Is(err, service.ErrNoProfile)
		if err != nil && !create {
			h.mutationError(w, r, err, "Could not save the profile.", ProfileRoute+"/edit")
			return
		}

		if errs := validate.Struct(form); errs != nil {
			h.renderProfileEditor(w, r, views.ProfileFormData{
				Create:    create,
				Bio:       form.Bio,
				AvatarURL: form.AvatarURL,
				Website:   form.Website,
				Errors:    errs,
			}, http.StatusUnprocessableEntity)
			return
		}

		if create {
			_, err = h.service.CreateProfile(ctx, form.data())
		} else {
			_, err = h.service.UpdateProfile(ctx, form.data())
		}
		if err != nil {
			h.mutationError(w, r, err, "Could not save the profile.", ProfileRoute+"/edit")
			return
		}
		h.redirect(w, r, ProfileRoute, views.FlashInfo, "Profile saved.")
	}
}

func (h *Handler) renderProfileEditor(w http.ResponseWriter, r *http.Request, data views.ProfileFormData, status int) {
	h.render(w, r, page{
		title:  "Edit profile",
		place:  views.PlaceProfile,
		status: status,
		child:  views.ProfileEditor(data),
	})
}

func DeleteProfile(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.service.DeleteProfile(r.Context()); err != nil {
			h.mutationError(w, r, err, "Could not delete the profile.", ProfileRoute)
			return
		}
		h.redirect(w, r, ProfileRoute, views.FlashInfo, "Profile deleted.")
	}
}

func ListUsers(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		data := views.UsersData{
			Query: q.Get("q"),
			Role:  q.Get("role"),
			Page:  pageNumber(r),
		}
		users, err := h.service.SearchUsers(r.Context(), domain.UserSearch{Query: data.Query, Role: data.Role, Page: data.Page})
		if err != nil {
			h.pageError(w, r, err, "users")
			return
		}
		data.Users = users
		data.HasMore = len(users) == service.UsersPageSize

		h.render(w, r, page{
			title: "Users",
			place: views.PlaceUsers,
			child: views.UserList(data),
		})
	}
}

func Admin(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.showAdmin(w, r, views.AdminData{Role: "user"}, 0)
	}
}

func (h *Handler) showAdmin(w http.ResponseWriter, r *http.Request, data views.AdminData, status int) {
	users, err := h.service.SearchUsers(r.Context(), domain.UserSearch{Page: pageNumber(r)})
	if err != nil {
		h.pageError(w, r, err, "users")
		return
	}
	data.Users = users
	h.render(w, r, page{
		title:  "Administration",
		place:  views.PlaceAdmin,
		status: status,
		child:  views.Admin(data),
	})
}

func CreateUser(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "failed to parse form", http.StatusBadRequest)
			return
		}
		form := parseUserForm(r)
		if errs := validate.Struct(form); errs != nil {
			h.showAdmin(w, r, views.AdminData{
				Username: form.Username,
				Email:    form.Email,
				FullName: form.FullName,
				Role:     form.Role,
				Errors:   errs,
			}, http.StatusUnprocessableEntity)
			return
		}

		u, err := h.service.CreateUser(r.Context(), domain.UserWrite{
			Username: form.Username,
			Email:    form.Email,
			Password: form.Password,
			FullName: form.FullName,
			Role:     form.Role,
		})
		if err != nil {
			h.mutationError(w, r, err, "Could not create the user.", AdminRoute)
			return
		}
		log.Info().Str("username", u.Username).Str("role", u.Role).Msg("user created")
		h.redirect(w, r, AdminRoute, views.FlashInfo, "User "+u.Username+" created.")
	}
}

func SetRole(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.pathID(w, r, "id")
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "failed to parse form", http.StatusBadRequest)
			return
		}
		form := roleForm{Role: field(r, "role")}
		if errs := validate.Struct(form); errs != nil {
			h.redirect(w, r, AdminRoute, views.FlashError, errs.Error())
			return
		}

		u, err := h.service.UpdateUser(r.Context(), id, domain.UserWrite{Role: form.Role})
		if err != nil {
			h.mutationError(w, r, err, "Could not change the role.", AdminRoute)
			return
		}
		h.redirect(w, r, AdminRoute, views.FlashInfo, u.Username+" is now "+u.Role+".")
	}
}

func DeleteUser(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.pathID(w, r, "id")
		if !ok {
			return
		}
		if id == h.currentUser() {
			h.redirect(w, r, AdminRoute, views.FlashError, "You cannot delete your own account.")
			return
		}
		if err := h.service.DeleteUser(r.Context(), id); err != nil {
			h.mutationError(w, r, err, "Could not delete the user.", AdminRoute)
			return
		}
		h.redirect(w, r, AdminRoute, views.FlashInfo, "User deleted.")
	}
}
