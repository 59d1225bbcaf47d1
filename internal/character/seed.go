package character

import "fmt"

// 默认的播种参数，与最初的原型保持一致
const (
	DefaultTotal       = 20
	DefaultNameFormat  = "Good Vibe #%d"
	DefaultURLFormat   = "https://opensea.io/assets/ethereum/0xb8ea78fcacef50d41375e44e6814ebba36bb33c4/%d"
	DefaultImageFormat = "https://ipfs.io/ipfs/QmY6JpwTYx6zZHgfJb3gPJRh1U897NX4RudtK5jhJ3sNDS/%d.jpg"
)

// SeedOptions 描述了如何生成初始角色列表。
// 各个 Format 字段都是接收角色ID的 fmt 模板。
type SeedOptions struct {
	Total       int
	NameFormat  string
	URLFormat   string
	ImageFormat string
}

// DefaultSeedOptions 返回默认的播种参数
func DefaultSeedOptions() SeedOptions {
	return SeedOptions{
		Total:       DefaultTotal,
		NameFormat:  DefaultNameFormat,
		URLFormat:   DefaultURLFormat,
		ImageFormat: DefaultImageFormat,
	}
}

// Seed 生成 ID 为 1..Total 的角色，所有计数器为0
func Seed(opts SeedOptions) []Character {
	defaults := DefaultSeedOptions()
	if opts.NameFormat == "" {
		opts.NameFormat = defaults.NameFormat
	}
	if opts.URLFormat == "" {
		opts.URLFormat = defaults.URLFormat
	}
	if opts.ImageFormat == "" {
		opts.ImageFormat = defaults.ImageFormat
	}

	characters := make([]Character, 0, max(opts.Total, 0))
	for id := 1; id <= opts.Total; id++ {
		characters = append(characters, Character{
			ID:          id,
			Name:        fmt.Sprintf(opts.NameFormat, id),
			ExternalURL: fmt.Sprintf(opts.URLFormat, id),
			ImageURL:    fmt.Sprintf(opts.ImageFormat, id),
		})
	}
	return characters
}
