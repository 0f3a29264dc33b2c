package loam

// RecordMetadata is the frontmatter of a catalog document.
// Documents under users/ fill Username and Name; documents under stores/ fill
// StoreID and StoreName. Both carry Items.
type RecordMetadata struct {
	Username  string   `json:"username,omitempty" mapstructure:"username"`
	Name      string   `json:"name,omitempty" mapstructure:"name"`
	StoreID   string   `json:"store_id,omitempty" mapstructure:"store_id"`
	StoreName string   `json:"store_name,omitempty" mapstructure:"store_name"`
	Items     []string `json:"items" mapstructure:"items"`
}
