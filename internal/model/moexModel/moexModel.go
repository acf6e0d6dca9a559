package moexModel

// RawSecurities is the ISS "securities" + "marketdata" table pair, each a column list with row arrays.
type RawSecurities struct {
	Securities Table `json:"securities"`
	Marketdata Table `json:"marketdata"`
}

type Table struct {
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}
