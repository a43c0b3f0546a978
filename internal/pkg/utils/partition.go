package utils

// ChunkRange 表示 [Start, End) 半开区间
type ChunkRange struct {
	Start int
	End   int
}

func (r ChunkRange) Len() int {
	return r.End - r.Start
}

// PartitionRanges 将长度为 total 的序列按 size 切分为连续区间，最后一段可能不足 size。
// size <= 0 时整体作为一段。
func PartitionRanges(total, size int) []ChunkRange {
	if total <= 0 {
		return nil
	}
	if size <= 0 || size >= total {
		return []ChunkRange{{Start: 0, End: total}}
	}

	ranges := make([]ChunkRange, 0, (total+size-1)/size)
	for start := 0; start < total; start += size {
		ranges = append(ranges, ChunkRange{Start: start, End: min(start+size, total)})
	}
	return ranges
}

// ClampIndex 把 i 限制到 [lo, hi]
func ClampIndex(i, lo, hi int) int {
	if i < lo {
		return lo
	}
	if i > hi {
		return hi
	}
	return i
}

// PartitionHashBytes 从任意 byte slice 中选取 4 字节构造 uint32 并模 mod，用于分区选择。
// 非加密哈希，仅适合负载均匀场景。
func PartitionHashBytes(b []byte, mod uint32) uint32 {
	if len(b) < 28 || mod <= 1 {
		return 0
	}
	switch mod {
	case 2, 4, 8, 16:
		return uint32(b[27]) & (mod - 1)
	}
	hash := uint32(b[7])<<24 | uint32(b[15])<<16 | uint32(b[19])<<8 | uint32(b[27])
	return hash % mod
}
