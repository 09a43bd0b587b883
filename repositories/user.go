package repositories

import (
	"dm-chat/domain"
	apperrors "dm-chat/errors"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
)

const userSeqKey = "seq:user"

// UserRepository is the thin user store backing registration and
// login. Two key families: "user:id:{id:019d}" holds the record,
// "user:email:{email}" enforces email uniqueness and resolves logins.
type UserRepository struct {
	db  *badger.DB
	log *slog.Logger
	seq *badger.Sequence
}

func NewUserRepository(db *badger.DB, log *slog.Logger) (*UserRepository, error) {
	seq, err := db.GetSequence([]byte(userSeqKey), seqBandwidth)
	if err != nil {
		return nil, fmt.Errorf("user sequence: %w", err)
	}
	return &UserRepository{db: db, log: log, seq: seq}, nil
}

func (u *UserRepository) Close() error {
	return u.seq.Release()
}

type diskUser struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	RegisteredAt int64
}

func userKey(id int64) []byte {
	return []byte(fmt.Sprintf("user:id:%019d", id))
}

func emailKey(email string) []byte {
	return []byte("user:email:" + strings.ToLower(email))
}

// Create stores a new user, rejecting duplicate emails.
func (u *UserRepository) Create(user domain.User) (domain.User, error) {
	next, err := u.seq.Next()
	if err != nil {
		return domain.User{}, fmt.Errorf("next user id: %w", err)
	}
	user.ID = int64(next) + 1
	user.RegisteredAt = time.Now().UTC()

	err = u.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(emailKey(user.Email))
		if err == nil {
			return apperrors.ErrEmailTaken
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		value, err := cbor.Marshal(toDiskUser(user))
		if err != nil {
			return err
		}
		if err := txn.Set(userKey(user.ID), value); err != nil {
			return err
		}
		return txn.Set(emailKey(user.Email), userKey(user.ID))
	})
	if err != nil {
		return domain.User{}, err
	}
	u.log.Info("user registered", "user_id", user.ID)
	return user, nil
}

func (u *UserRepository) GetByID(id int64) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		du, err := u.read(txn, userKey(id))
		if err != nil {
			return err
		}
		user = toDomainUser(du)
		return nil
	})
	return user, err
}

func (u *UserRepository) GetByEmail(email string) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		du, err := u.read(txn, key)
		if err != nil {
			return err
		}
		user = toDomainUser(du)
		return nil
	})
	return user, err
}

// List returns every user except the given one, in id order.
func (u *UserRepository) List(excludeID int64) ([]domain.User, error) {
	users := []domain.User{}
	err := u.db.View(func(txn *badger.Txn) error {
		prefix := []byte("user:id:")
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var du diskUser
			err := it.Item().Value(func(value []byte) error {
				return cbor.Unmarshal(value, &du)
			})
			if err != nil {
				return err
			}
			if du.ID == excludeID {
				continue
			}
			users = append(users, toDomainUser(du))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (u *UserRepository) read(txn *badger.Txn, key []byte) (diskUser, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return diskUser{}, apperrors.ErrUserNotFound
	}
	if err != nil {
		return diskUser{}, err
	}
	var du diskUser
	err = item.Value(func(value []byte) error {
		return cbor.Unmarshal(value, &du)
	})
	return du, err
}

func toDiskUser(user domain.User) diskUser {
	return diskUser{
		ID:           user.ID,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Email:        strings.ToLower(user.Email),
		PasswordHash: user.PasswordHash,
		RegisteredAt: user.RegisteredAt.UnixNano(),
	}
}

func toDomainUser(du diskUser) domain.User {
	return domain.User{
		ID:           du.ID,
		FirstName:    du.FirstName,
		LastName:     du.LastName,
		Email:        du.Email,
		PasswordHash: du.PasswordHash,
		RegisteredAt: time.Unix(0, du.RegisteredAt).UTC(),
	}
}
