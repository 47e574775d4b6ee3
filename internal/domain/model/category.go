package model

type Category struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(100);not null" json:"name"`
	//アイコン識別子（例: fa-shirt）
	Icon string `gorm:"type:varchar(50)" json:"icon"`
}

type Color struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name    string `gorm:"type:varchar(50);not null" json:"name"`
	HexCode string `gorm:"type:varchar(7);not null" json:"hex_code"`
}
