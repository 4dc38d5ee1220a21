package model

import "time"

// 累計販売数がしきい値を超えた商品だけ行を持つ（遅延作成）。
type PopularProduct struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID       int64     `gorm:"not null;uniqueIndex" json:"product_id"`
	QuantitySold    int64     `gorm:"not null" json:"quantity_sold"`
	LastPurchasedAt time.Time `gorm:"not null" json:"last_purchased_at"`
	CreatedAt       time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
