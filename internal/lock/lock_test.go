/*
Copyright 2025 Homedir Manager Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package redlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func newMiniredisClient(t *testing.T) redis.UniversalClient {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestLocker_Lock_Success(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "cleanup-lock", "run_1")

	mock.ExpectSetNX("cleanup-lock", "run_1", 5*time.Second).SetVal(true)

	err := locker.Lock(context.Background(), 5*time.Second)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_Lock_AlreadyHeld(t *testing.T) {
	client := newMiniredisClient(t)
	first := NewLocker(client, "cleanup-lock", "run_1")
	second := NewLocker(client, "cleanup-lock", "run_2")

	assert.NoError(t, first.Lock(context.Background(), 30*time.Second))

	err := second.Lock(context.Background(), 30*time.Second)
	assert.EqualError(t, err, "lock for key cleanup-lock is already held")
}

func TestLocker_Unlock_OnlyHolderCanUnlock(t *testing.T) {
	client := newMiniredisClient(t)
	holder := NewLocker(client, "cleanup-lock", "run_1")
	intruder := NewLocker(client, "cleanup-lock", "run_2")

	assert.NoError(t, holder.Lock(context.Background(), 30*time.Second))

	err := intruder.Unlock(context.Background())
	assert.Error(t, err)

	assert.NoError(t, holder.Unlock(context.Background()))

	// the lock is free again
	assert.NoError(t, intruder.Lock(context.Background(), 30*time.Second))
}

func TestLocker_ExtendLock(t *testing.T) {
	client := newMiniredisClient(t)
	holder := NewLocker(client, "cleanup-lock", "run_1")

	assert.NoError(t, holder.Lock(context.Background(), 10*time.Second))
	assert.NoError(t, holder.ExtendLock(context.Background(), 60*time.Second))

	intruder := NewLocker(client, "cleanup-lock", "run_2")
	assert.Error(t, intruder.ExtendLock(context.Background(), 60*time.Second))
}

func TestLocker_WaitLock_AcquiresAfterRelease(t *testing.T) {
	client := newMiniredisClient(t)
	holder := NewLocker(client, "cleanup-lock", "run_1")
	waiter := NewLocker(client, "cleanup-lock", "run_2")

	assert.NoError(t, holder.Lock(context.Background(), 30*time.Second))

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = holder.Unlock(context.Background())
	}()

	err := waiter.WaitLock(context.Background(), 30*time.Second, 2*time.Second)
	assert.NoError(t, err)
}

func TestLocker_WaitLock_TimesOut(t *testing.T) {
	client := newMiniredisClient(t)
	holder := NewLocker(client, "cleanup-lock", "run_1")
	waiter := NewLocker(client, "cleanup-lock", "run_2")

	assert.NoError(t, holder.Lock(context.Background(), 30*time.Second))

	err := waiter.WaitLock(context.Background(), 30*time.Second, 300*time.Millisecond)
	assert.Error(t, err)
}
