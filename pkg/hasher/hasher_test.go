package hasher

import (
	"context"
	"crypto/md5"
	"errors"
	"hash"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingSource 在指定分块返回错误
type failingSource struct {
	data   []byte
	failAt int64
	cause  error
	reads  int
	window int64
}

func (s *failingSource) Size() int64 { return int64(len(s.data)) }

func (s *failingSource) ReadRange(_ context.Context, start, end int64) ([]byte, error) {
	s.reads++
	if start/s.window == s.failAt {
		return nil, s.cause
	}
	return s.data[start:end], nil
}

// patternSource 按偏移量生成数据，不持有完整内容
// 记录当前未喂入累加器的字节数以及读取区间
type patternSource struct {
	size        int64
	buf         []byte
	mu          sync.Mutex
	outstanding int64
	maxHeld     int64
	ranges      [][2]int64
}

func patternByte(off int64) byte {
	return byte(off % 251)
}

func (s *patternSource) Size() int64 { return s.size }

func (s *patternSource) ReadRange(_ context.Context, start, end int64) ([]byte, error) {
	n := int(end - start)
	if cap(s.buf) < n {
		s.buf = make([]byte, n)
	}
	p := s.buf[:n]
	for i := range p {
		p[i] = patternByte(start + int64(i))
	}

	s.mu.Lock()
	s.outstanding += int64(n)
	if s.outstanding > s.maxHeld {
		s.maxHeld = s.outstanding
	}
	s.ranges = append(s.ranges, [2]int64{start, end})
	s.mu.Unlock()
	return p, nil
}

func (s *patternSource) fed(n int) {
	s.mu.Lock()
	s.outstanding -= int64(n)
	s.mu.Unlock()
}

// trackingHash 喂入数据时通知数据源释放
type trackingHash struct {
	hash.Hash
	src *patternSource
}

func (h *trackingHash) Write(p []byte) (int, error) {
	n, err := h.Hash.Write(p)
	h.src.fed(n)
	return n, err
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	r := rand.New(rand.NewSource(int64(n)))
	data := make([]byte, n)
	_, err := r.Read(data)
	require.NoError(t, err)
	return data
}

func wholeDigest(t *testing.T, alg Algorithm, data []byte) []byte {
	t.Helper()
	h, err := New(alg)
	require.NoError(t, err)
	h.Write(data)
	return h.Sum(nil)
}

func TestComputeDigest_HelloWorld(t *testing.T) {
	data := []byte("hello world")

	small, err := HashBytes(data, WithWindowSize(4))
	require.NoError(t, err)

	single, err := HashBytes(data, WithWindowSize(1048576))
	require.NoError(t, err)

	huge, err := HashBytes(data, WithWindowSize(math.MaxInt64))
	require.NoError(t, err)

	assert.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", small.Hex())
	assert.True(t, small.Equal(single))
	assert.True(t, small.Equal(huge))
	assert.Equal(t, MD5, small.Algorithm)
}

func TestComputeDigest_Empty(t *testing.T) {
	tests := []struct {
		alg  Algorithm
		want string
	}{
		{MD5, "d41d8cd98f00b204e9800998ecf8427e"},
		{SHA256, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
	}

	for _, tt := range tests {
		t.Run(string(tt.alg), func(t *testing.T) {
			for _, window := range []int64{1, 4, DefaultWindowSize} {
				d, err := HashBytes(nil, WithAlgorithm(tt.alg), WithWindowSize(window))
				require.NoError(t, err)
				assert.Equal(t, tt.want, d.Hex())
			}
		})
	}
}

func TestComputeDigest_WindowIndependence(t *testing.T) {
	data := randomBytes(t, 10_007)

	for _, alg := range List() {
		t.Run(string(alg), func(t *testing.T) {
			want := wholeDigest(t, alg, data)

			windows := []int64{1, 3, 7, 64, 1000, 4096, int64(len(data)), int64(len(data)) + 1, DefaultWindowSize,
				math.MaxInt64 - 5, math.MaxInt64}
			for _, w := range windows {
				d, err := HashBytes(data, WithAlgorithm(alg), WithWindowSize(w))
				require.NoError(t, err, "window %d", w)
				assert.Equal(t, want, d.Sum, "window %d", w)
			}
		})
	}
}

func TestComputeDigest_SingleChunkBoundary(t *testing.T) {
	data := randomBytes(t, 512)

	var calls int
	src := NewBytesSource(data)
	d, err := ComputeDigest(context.Background(), src,
		WithWindowSize(int64(len(data))),
		WithProgress(func(done, total int64) {
			calls++
			assert.Equal(t, total, done)
		}),
	)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	smaller, err := HashBytes(data, WithWindowSize(100))
	require.NoError(t, err)
	assert.True(t, d.Equal(smaller))
}

func TestComputeDigest_OrderSensitive(t *testing.T) {
	data := []byte("hello world")
	const window = 4

	ordered, err := HashBytes(data, WithWindowSize(window))
	require.NoError(t, err)

	// 逆序喂入同样的分块
	h := md5.New()
	for end := int64(len(data)); end > 0; {
		start := ((end - 1) / window) * window
		h.Write(data[start:end])
		end = start
	}

	assert.NotEqual(t, ordered.Sum, h.Sum(nil))
}

func TestComputeDigest_InvalidWindow(t *testing.T) {
	for _, w := range []int64{0, -1, -DefaultWindowSize} {
		src := &failingSource{data: []byte("abc"), failAt: -1, window: 1}
		d, err := ComputeDigest(context.Background(), src, WithWindowSize(w))

		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.True(t, d.IsZero())
		assert.Zero(t, src.reads, "no read may happen before validation")
	}
}

func TestComputeDigest_NilSource(t *testing.T) {
	_, err := ComputeDigest(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestComputeDigest_UnsupportedAlgorithm(t *testing.T) {
	_, err := HashBytes([]byte("x"), WithAlgorithm("crc7"))
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestComputeDigest_ReadError(t *testing.T) {
	cause := errors.New("medium unavailable")
	src := &failingSource{data: randomBytes(t, 100), failAt: 2, cause: cause, window: 10}

	d, err := ComputeDigest(context.Background(), src, WithWindowSize(10))
	require.Error(t, err)
	assert.True(t, d.IsZero())
	assert.ErrorIs(t, err, ErrRead)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, src.reads, "computation stops at the failing chunk")

	var readErr *ReadError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, int64(2), readErr.Chunk)
	assert.Equal(t, int64(20), readErr.Start)
	assert.Equal(t, int64(30), readErr.End)
}

type shortSource struct{ size int64 }

func (s shortSource) Size() int64 { return s.size }

func (s shortSource) ReadRange(_ context.Context, start, end int64) ([]byte, error) {
	return make([]byte, end-start-1), nil
}

func TestComputeDigest_ShortRead(t *testing.T) {
	_, err := ComputeDigest(context.Background(), shortSource{size: 10}, WithWindowSize(4))
	assert.ErrorIs(t, err, ErrShortRead)
	assert.ErrorIs(t, err, ErrRead)
}

func TestComputeDigest_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	data := randomBytes(t, 64)
	d, err := ComputeDigest(ctx, NewBytesSource(data),
		WithWindowSize(8),
		WithProgress(func(done, total int64) {
			if done == 8 {
				cancel()
			}
		}),
	)

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, d.IsZero())
}

func TestComputeDigest_MemoryBound(t *testing.T) {
	const window = 4096
	src := &patternSource{size: 64*window + 123}

	const alg Algorithm = "md5-tracked"
	Register(alg, func() hash.Hash {
		return &trackingHash{Hash: md5.New(), src: src}
	})
	t.Cleanup(func() { Unregister(alg) })

	d, err := ComputeDigest(context.Background(), src, WithAlgorithm(alg), WithWindowSize(window))
	require.NoError(t, err)

	assert.LessOrEqual(t, src.maxHeld, int64(window))
	assert.Zero(t, src.outstanding)

	// 区间连续、升序、不重叠
	var next int64
	for _, r := range src.ranges {
		assert.Equal(t, next, r[0])
		assert.LessOrEqual(t, r[1]-r[0], int64(window))
		next = r[1]
	}
	assert.Equal(t, src.size, next)
	assert.Len(t, src.ranges, int(ChunkCount(src.size, window)))

	want := md5.New()
	for off := int64(0); off < src.size; off++ {
		want.Write([]byte{patternByte(off)})
	}
	assert.Equal(t, want.Sum(nil), d.Sum)
}

func TestComputeDigest_ConcurrentIndependent(t *testing.T) {
	inputs := make([][]byte, 8)
	for i := range inputs {
		inputs[i] = randomBytes(t, 1000+i*333)
	}

	results := make([]Digest, len(inputs))
	errs := make([]error, len(inputs))

	var wg sync.WaitGroup
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = HashBytes(inputs[i], WithWindowSize(int64(7+i)))
		}(i)
	}
	wg.Wait()

	for i := range inputs {
		require.NoError(t, errs[i])
		assert.Equal(t, wholeDigest(t, MD5, inputs[i]), results[i].Sum)
	}
}

func TestHashFile(t *testing.T) {
	data := randomBytes(t, 3*1024+17)
	path := filepath.Join(t.TempDir(), "image.png")
	require.NoError(t, os.WriteFile(path, data, 0644))

	d, err := HashFile(context.Background(), path, WithWindowSize(1024))
	require.NoError(t, err)

	sum := md5.Sum(data)
	assert.Equal(t, sum[:], d.Sum)
}

func TestHashFile_Errors(t *testing.T) {
	_, err := HashFile(context.Background(), "/nonexistent/file/path.png")
	assert.Error(t, err)

	_, err = HashFile(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestChunkCount(t *testing.T) {
	tests := []struct {
		size, window, want int64
	}{
		{0, 4, 0},
		{11, 4, 3},
		{12, 4, 3},
		{13, 4, 4},
		{11, 1048576, 1},
		{5, 0, 0},
		{11, math.MaxInt64, 1},
		{11, math.MaxInt64 - 5, 1},
		{math.MaxInt64, math.MaxInt64, 1},
		{math.MaxInt64, 2, math.MaxInt64/2 + 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ChunkCount(tt.size, tt.window), "size=%d window=%d", tt.size, tt.window)
	}
}
