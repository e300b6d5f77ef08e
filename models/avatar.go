// Package models — Avatar türetme.
//
// Avatar, kullanıcı adından DETERMİNİSTİK olarak türetilir:
// aynı username her zaman aynı avatar'ı üretir (test edilebilirlik için
// dışarıdan randomness YOK). Descriptor formatı: "renk/BAŞHARFLER",
// örn: "#e67e22/AL". Frontend bu descriptor'dan renkli daire + baş harf çizer.
package models

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

// avatarPalette, avatar arka plan renkleri. Sabit ve sıralı —
// palette değişirse mevcut kullanıcıların avatar rengi de değişir,
// bu yüzden renkler sadece SONA eklenmelidir.
var avatarPalette = []string{
	"#e74c3c", // kırmızı
	"#e67e22", // turuncu
	"#f1c40f", // sarı
	"#2ecc71", // yeşil
	"#1abc9c", // turkuaz
	"#3498db", // mavi
	"#9b59b6", // mor
	"#e91e63", // pembe
}

// DeriveAvatar, username'den avatar descriptor üretir.
// Renk: FNV-1a hash % palette boyutu. Baş harfler: ilk iki karakterin
// büyük harf hali (tek karakterlik input'ta tek harf).
func DeriveAvatar(username string) string {
	h := fnv.New32a()
	h.Write([]byte(username))
	// Mod alma uint32 üzerinde yapılır — int 32-bit olan platformlarda
	// Sum32() int'e sığmayıp negatif index üretebilir.
	color := avatarPalette[int(h.Sum32()%uint32(len(avatarPalette)))]

	return fmt.Sprintf("%s/%s", color, avatarInitials(username))
}

// avatarInitials, username'in ilk iki rune'unu büyük harfe çevirir.
func avatarInitials(username string) string {
	var b strings.Builder
	n := 0
	for _, r := range username {
		if n >= 2 {
			break
		}
		b.WriteRune(unicode.ToUpper(r))
		n++
	}
	return b.String()
}
