package models

// Option is a process-wide key/value setting
type Option struct {
	Name  string `gorm:"primaryKey;type:varchar(191);column:option_name"`
	Value string `gorm:"type:text;not null;column:option_value"`
}

// TableName specifies the table name for Option
func (Option) TableName() string {
	return "options"
}
