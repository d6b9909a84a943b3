package main

import (
	"net/http"
)

// getCurrentUserHandler godoc
//
//	@Summary	Returns the authenticated user
//	@Tags		users
//	@Produce	json
//	@Success	200	{object}	users.User
//	@Failure	401	{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/users/me [get]
func (app *application) getCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	if err := app.jsonResponse(w, http.StatusOK, user); err != nil {
		app.internalServerError(w, r, err)
	}
}

// logoutHandler godoc
//
//	@Summary	Logs the user out by revoking the stored refresh token
//	@Tags		users
//	@Produce	json
//	@Success	204	{string}	string	"Logged out"
//	@Failure	401	{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/users/logout [post]
func (app *application) logoutHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	if err := app.store.Users.ClearRefreshToken(r.Context(), user.ID); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
