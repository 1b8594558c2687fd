package controllers

import (
	"net/http"

	"github.com/academiaalbert/academia-backend/api/responses"
	"github.com/academiaalbert/academia-backend/pkg/config"
	"github.com/academiaalbert/academia-backend/pkg/enums"
)

type paymentAccount struct {
	Method  enums.PaymentMethod `json:"method"`
	Label   string              `json:"label"`
	Account string              `json:"account"`
}

// PaymentAccounts lists where students send manual payments before submitting proof.
func PaymentAccounts(cfg config.PaymentsConfig) http.HandlerFunc {
	accounts := []paymentAccount{
		{Method: enums.PaymentMethodMPesa, Label: "M-Pesa", Account: cfg.MPesaAccount},
		{Method: enums.PaymentMethodEMola, Label: "e-Mola", Account: cfg.EMolaAccount},
		{Method: enums.PaymentMethodBIM, Label: "Millennium BIM", Account: cfg.BIMAccount},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, accounts)
	}
}
