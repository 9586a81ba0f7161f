// internal/app/features/authn/requests.go
package authn

import (
	"bytes"
	"encoding/json"

	"github.com/dalemusser/contesthub/internal/domain/models"
)

// nameField accepts either "Jane Doe" or {"first":"Jane","last":"Doe"}.
type nameField models.Name

func (n *nameField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = nameField{First: s}
		return nil
	}
	var obj models.Name
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*n = nameField(obj)
	return nil
}

type registerRequest struct {
	Username string    `json:"username"`
	Password string    `json:"password"`
	Email    string    `json:"email"`
	Name     nameField `json:"name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type forgotRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	ResetToken  string `json:"resetToken"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	NewPassword string `json:"newPassword"`
}

// accountResponse is the {user, message} envelope for signup and reset.
type accountResponse struct {
	User    models.PublicAccount `json:"user"`
	Message string               `json:"message"`
}
