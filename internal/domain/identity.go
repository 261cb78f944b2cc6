package domain

// IdentityKey — ключ партиционирования хранилища корзин: «чья это корзина».
// Гостевые и авторизованные сессии никогда не разделяют ключ.
type IdentityKey string

// GuestKey — единый ключ для неавторизованного посетителя.
const GuestKey IdentityKey = "guest"

// UserKey строит ключ для авторизованного пользователя.
func UserKey(userID string) IdentityKey {
	if userID == "" {
		return GuestKey
	}
	return IdentityKey("user:" + userID)
}
