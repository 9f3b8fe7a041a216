package handler

import "github.com/xenking/storefront-api/internal/domain/order"

// statusMeta is the presentation metadata of an order status. It lives in the
// handler layer so the domain stays free of display concerns.
type statusMeta struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

var statusMetas = map[order.Status]statusMeta{
	order.StatusPending:   {Label: "Pending", Icon: "hourglass", Color: "#f0ad4e"},
	order.StatusConfirmed: {Label: "Confirmed", Icon: "check-circle", Color: "#5bc0de"},
	order.StatusPreparing: {Label: "Preparing", Icon: "box", Color: "#0275d8"},
	order.StatusShipping:  {Label: "Shipping", Icon: "truck", Color: "#6f42c1"},
	order.StatusDelivered: {Label: "Delivered", Icon: "home", Color: "#5cb85c"},
	order.StatusCompleted: {Label: "Completed", Icon: "flag", Color: "#292b2c"},
	order.StatusCancelled: {Label: "Cancelled", Icon: "x-circle", Color: "#d9534f"},
}

// metaFor returns the presentation metadata of a status, falling back to the
// raw value for a status this build does not know.
func metaFor(s order.Status) statusMeta {
	if m, ok := statusMetas[s]; ok {
		return m
	}
	return statusMeta{Label: string(s), Icon: "help-circle", Color: "#6c757d"}
}
