package qfmath

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	require := require.New(t)

	sum, err := Add(uint256.NewInt(2), uint256.NewInt(3))
	require.NoError(err)
	require.Equal(uint64(5), sum.Uint64())

	sum, err = Add(MaxLedger, uint256.NewInt(0))
	require.NoError(err)
	require.True(sum.Eq(MaxLedger))

	_, err = Add(MaxLedger, uint256.NewInt(1))
	require.ErrorIs(err, ErrOverflow)
}

func TestSub(t *testing.T) {
	require := require.New(t)

	diff, err := Sub(uint256.NewInt(5), uint256.NewInt(5))
	require.NoError(err)
	require.True(diff.IsZero())

	_, err = Sub(uint256.NewInt(4), uint256.NewInt(5))
	require.ErrorIs(err, ErrUnderflow)
}

func TestSquareOverflow(t *testing.T) {
	require := require.New(t)

	// (2^64 - 1)^2 fits in 128 bits, 2^64 squared does not.
	maxWeight := new(uint256.Int).SetUint64(^uint64(0))
	sq, err := Square(maxWeight)
	require.NoError(err)
	require.Equal(LedgerBits, sq.BitLen())

	big := new(uint256.Int).Lsh(uint256.NewInt(1), 64)
	_, err = Square(big)
	require.ErrorIs(err, ErrOverflow)

	// would wrap in 256 bits as well
	_, err = Mul(new(uint256.Int).Lsh(uint256.NewInt(1), 200), new(uint256.Int).Lsh(uint256.NewInt(1), 100))
	require.ErrorIs(err, ErrOverflow)
}

func TestMulDiv(t *testing.T) {
	tests := []struct {
		name    string
		x, y, d *uint256.Int
		want    *uint256.Int
		err     error
	}{
		{
			name: "floors",
			x:    uint256.NewInt(7),
			y:    uint256.NewInt(10),
			d:    uint256.NewInt(3),
			want: uint256.NewInt(23),
		},
		{
			name: "wide intermediate",
			x:    MaxLedger,
			y:    MaxLedger,
			d:    MaxLedger,
			want: MaxLedger,
		},
		{
			name: "result too wide",
			x:    MaxLedger,
			y:    uint256.NewInt(2),
			d:    uint256.NewInt(1),
			err:  ErrOverflow,
		},
		{
			name: "zero divisor",
			x:    uint256.NewInt(1),
			y:    uint256.NewInt(1),
			d:    uint256.NewInt(0),
			err:  ErrDivideByZero,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MulDiv(tt.x, tt.y, tt.d)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.True(t, got.Eq(tt.want), "got %s want %s", got.Dec(), tt.want.Dec())
		})
	}
}

func TestNormalize(t *testing.T) {
	require := require.New(t)

	n, err := Normalize(uint256.NewInt(1_000_000), 6)
	require.NoError(err)
	require.Equal("1000000000000000000", n.Dec())

	d, err := Denormalize(n, 6)
	require.NoError(err)
	require.Equal(uint64(1_000_000), d.Uint64())

	// denormalize rounds down
	d, err = Denormalize(uint256.NewInt(1_999_999_999_999), 6)
	require.NoError(err)
	require.Equal(uint64(1), d.Uint64())

	n, err = Normalize(uint256.NewInt(12345), 18)
	require.NoError(err)
	require.Equal(uint64(12345), n.Uint64())

	n, err = Normalize(uint256.NewInt(1_000), 20)
	require.NoError(err)
	require.Equal(uint64(10), n.Uint64())

	d, err = Denormalize(n, 20)
	require.NoError(err)
	require.Equal(uint64(1_000), d.Uint64())

	_, err = Normalize(MaxLedger, 6)
	require.ErrorIs(err, ErrOverflow)

	n, err = Normalize(uint256.NewInt(1_000_000), MaxDecimals)
	require.NoError(err)
	require.True(n.IsZero())
	_, err = Normalize(uint256.NewInt(1_000_000), MaxDecimals+1)
	require.ErrorIs(err, ErrOverflow)
	_, err = Denormalize(uint256.NewInt(1), 120)
	require.ErrorIs(err, ErrOverflow)
}
