package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	appErrors "github.com/shopsphere/commerce-core/internal/errors"
	"github.com/shopsphere/commerce-core/internal/utils"
	"github.com/shopsphere/commerce-core/internal/utils/response"
)

// parseAndValidate decodes the JSON body into dest and runs struct
// validation; on failure it writes the error response and returns false.
func parseAndValidate(w http.ResponseWriter, r *http.Request, dest any, validate *validator.Validate) bool {

	if err := utils.DecodeJSONBody(r, dest); err != nil {
		response.Error(w, appErrors.BadRequestError("Invalid request body").WithError(err))
		return false
	}

	if err := utils.ValidateStruct(validate, dest); err != nil {

		var validationErrs validator.ValidationErrors

		if errors.As(err, &validationErrs) {
			response.ValidationError(w, validationErrs)
			return false
		}

		response.Error(w, appErrors.ValidationError("Invalid input data").WithError(err))
		return false
	}

	return true
}
