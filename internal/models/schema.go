package models

// SchemaColumn is a column as reported by information_schema.
type SchemaColumn struct {
	Name     string `json:"name"`
	DataType string `json:"dataType"`
	Nullable bool   `json:"nullable"`
}

type ForeignKey struct {
	FromColumn string `json:"fromColumn"`
	ToTable    string `json:"toTable"`
	ToColumn   string `json:"toColumn"`
}

// SchemaTable is a materialised sample table inside an assignment schema.
type SchemaTable struct {
	Name        string         `json:"name"`
	Columns     []SchemaColumn `json:"columns"`
	PrimaryKeys []string       `json:"primaryKeys"`
	ForeignKeys []ForeignKey   `json:"foreignKeys"`
	RowCount    int64          `json:"rowCount"`
}

// Relationship is an edge of the ER diagram in Mermaid cardinality notation.
type Relationship struct {
	FromTable string
	ToTable   string
	Type      string
}
