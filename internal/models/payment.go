package models

// PaymentMethod identifies a payment gateway
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cashOnDelivery"
	PaymentCreditCard     PaymentMethod = "creditCard"
	PaymentGooglePay      PaymentMethod = "googlePay"
	PaymentPhonePay       PaymentMethod = "phonePay"
	PaymentNetBanking     PaymentMethod = "netBanking"
	PaymentPayPal         PaymentMethod = "paypal"
	PaymentPaytm          PaymentMethod = "paytm"
)

var paymentLabels = map[PaymentMethod]string{
	PaymentCashOnDelivery: "Cash on Delivery",
	PaymentCreditCard:     "Credit Card/Debit Card",
	PaymentGooglePay:      "Google Pay",
	PaymentPhonePay:       "Phone Pay",
	PaymentNetBanking:     "Net Banking",
	PaymentPayPal:         "PayPal",
	PaymentPaytm:          "Paytm",
}

// Label returns human-readable payment method name stored on the order
func (pm PaymentMethod) Label() string {
	if l, ok := paymentLabels[pm]; ok {
		return l
	}
	return string(pm)
}

// PaymentMethodByLabel returns payment method stored on order under label
func PaymentMethodByLabel(label string) (PaymentMethod, bool) {
	for pm, l := range paymentLabels {
		if l == label {
			return pm, true
		}
	}
	return "", false
}
