package api

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront-checkout/internal/domain/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/pricing"
	"github.com/xenking/storefront-checkout/internal/domain/totals"
)

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
	})
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func encodePricedLine(e *jx.Encoder, l pricing.PricedLine) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(l.LineID) })
		e.Field("product_id", func(e *jx.Encoder) { e.Int64(l.ProductID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
		e.Field("model", func(e *jx.Encoder) { e.Str(l.Model) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
		e.Field("unit_price", func(e *jx.Encoder) { e.Str(l.UnitPrice.StringFixed(2)) })
		e.Field("line_total", func(e *jx.Encoder) { e.Str(l.LineTotal.StringFixed(2)) })
		e.Field("points", func(e *jx.Encoder) { e.Int64(l.UnitPoints * int64(l.Quantity)) })
		e.Field("stock_ok", func(e *jx.Encoder) { e.Bool(l.StockOK) })
		if l.Minimum > 1 {
			e.Field("minimum", func(e *jx.Encoder) { e.Int(l.Minimum) })
		}
		if l.Subscription != nil {
			e.Field("subscription", func(e *jx.Encoder) { e.Str(l.Subscription.Name) })
		}
		e.Field("options", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, o := range l.Options {
					e.Obj(func(e *jx.Encoder) {
						e.Field("name", func(e *jx.Encoder) { e.Str(o.Name) })
						e.Field("value", func(e *jx.Encoder) { e.Str(o.Value) })
					})
				}
			})
		})
	})
}

func encodeTotals(e *jx.Encoder, items []totals.Line) {
	e.Arr(func(e *jx.Encoder) {
		for _, it := range items {
			e.Obj(func(e *jx.Encoder) {
				e.Field("code", func(e *jx.Encoder) { e.Str(it.Code) })
				e.Field("title", func(e *jx.Encoder) { e.Str(it.Title) })
				e.Field("value", func(e *jx.Encoder) { e.Str(it.Value.StringFixed(2)) })
			})
		}
	})
}

func encodeSnapshot(e *jx.Encoder, snap *checkout.Snapshot) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("order_id", func(e *jx.Encoder) { e.Str(snap.OrderID.String()) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(snap.Currency) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(snap.Status)) })
		e.Field("total", func(e *jx.Encoder) { e.Str(snap.Total.StringFixed(2)) })
		e.Field("totals", func(e *jx.Encoder) { encodeTotals(e, snap.Totals) })
		e.Field("products", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range snap.Lines {
					encodePricedLine(e, l)
				}
			})
		})
	})
}
