// Package credentials generates the friendly nicknames that identify returning
// learners without storing anything personal.
package credentials

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// ErrNoNicknameAvailable is returned when every generated candidate was taken
var ErrNoNicknameAvailable = errors.New("no free nickname found")

// Word lists for generating kid-friendly nicknames
var adjectives = []string{
	"happy", "sunny", "brave", "bright", "swift", "clever", "jolly", "lucky",
	"bouncy", "cheerful", "eager", "gentle", "kindly", "lively", "merry", "perky",
	"quick", "snappy", "zippy", "bold", "cosmic", "groovy", "giggly", "sparkly",
}

var nouns = []string{
	"apple", "bear", "cat", "dolphin", "elephant", "fox", "giraffe", "hippo",
	"iguana", "jellyfish", "koala", "lion", "monkey", "nightingale", "owl", "panda",
	"quail", "rabbit", "seal", "tiger", "unicorn", "vulture", "walrus", "yak", "zebra",
}

const maxNicknameAttempts = 20

// GenerateNickname generates a random nickname in the format "adjective-noun-NN"
func GenerateNickname() (string, error) {
	adjective, err := randomElement(adjectives)
	if err != nil {
		return "", err
	}

	noun, err := randomElement(nouns)
	if err != nil {
		return "", err
	}

	n, err := rand.Int(rand.Reader, big.NewInt(100))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%s-%02d", adjective, noun, n.Int64()), nil
}

// GenerateUniqueNickname keeps generating until exists reports a free nickname
func GenerateUniqueNickname(ctx context.Context, exists func(context.Context, string) (bool, error)) (string, error) {
	for i := 0; i < maxNicknameAttempts; i++ {
		nickname, err := GenerateNickname()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, nickname)
		if err != nil {
			return "", err
		}
		if !taken {
			return nickname, nil
		}
	}
	return "", ErrNoNicknameAvailable
}

// randomElement picks a random element from a string slice
func randomElement(slice []string) (string, error) {
	if len(slice) == 0 {
		return "", nil
	}

	num, err := rand.Int(rand.Reader, big.NewInt(int64(len(slice))))
	if err != nil {
		return "", err
	}

	return slice[num.Int64()], nil
}
