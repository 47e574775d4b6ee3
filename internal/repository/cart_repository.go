package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// セッションIDごとのカート保存先。
// 有効期限はセッション側の寿命に従う（バックグラウンドの掃除はしない）
type CartStore interface {
	//無ければ空のカートを返す
	Load(ctx context.Context, sessionID string) (model.Cart, error)
	Save(ctx context.Context, sessionID string, cart model.Cart) error
	Clear(ctx context.Context, sessionID string) error
	//読み出し→fn→保存を1つの更新として行う。fnがエラーなら保存せずにそのエラーを返す。
	//同じセッションへの同時更新はどちらも反映される
	Update(ctx context.Context, sessionID string, fn func(cart *model.Cart) error) (model.Cart, error)
}
