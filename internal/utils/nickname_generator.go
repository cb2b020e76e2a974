package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var nouns = []string{
	"Loup", "Renard", "Faucon", "Dragon", "Lynx",
	"Corbeau", "Tigre", "Ours", "Aigle", "Cobra",
	"Phénix", "Panthère", "Requin", "Sanglier", "Vipère",
}

var adjectives = []string{
	"Agile", "Brave", "Rusé", "Sombre", "Rapide",
	"Furtif", "Féroce", "Doré", "Glacé", "Tenace",
	"Sauvage", "Vaillant", "Vif", "Fougueux", "Calme",
}

// GenerateNickname returns a display name such as "Loup_Agile_0421" for
// users whose token carries no username
func GenerateNickname() (string, error) {
	noun, err := pick(nouns)
	if err != nil {
		return "", err
	}
	adjective, err := pick(adjectives)
	if err != nil {
		return "", err
	}
	suffix, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("failed to generate nickname suffix: %w", err)
	}

	return fmt.Sprintf("%s_%s_%04d", noun, adjective, suffix.Int64()), nil
}

func pick(words []string) (string, error) {
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
	if err != nil {
		return "", fmt.Errorf("failed to pick nickname word: %w", err)
	}
	return words[idx.Int64()], nil
}
