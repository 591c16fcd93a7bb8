package eastmoney

// klineResponse es la respuesta de /api/qt/stock/kline/get.
// data es null cuando el código no existe.
type klineResponse struct {
	RC   int        `json:"rc"`
	Data *klineData `json:"data"`
}

type klineData struct {
	Code    string   `json:"code"`
	Market  int      `json:"market"`
	Name    string   `json:"name"`
	Decimal int      `json:"decimal"`
	Total   int      `json:"dktotal"`
	Klines  []string `json:"klines"`
}
