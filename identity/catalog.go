package identity

// Skins 可选皮肤纹理，在关卡开始前全部预加载
var Skins = []string{
	"shapes/balls/pack1/uskin1.marble.png",
	"shapes/balls/pack1/uskin3.marble.png",
	"shapes/balls/pack1/uskin5.marble.png",
	"shapes/balls/pack1/uskin7.marble.png",
	"shapes/balls/pack1/uskin10.marble.png",
	"shapes/balls/pack1/uskin12.marble.png",
	"shapes/balls/pack1/uskin15.marble.png",
	"shapes/balls/pack1/uskin18.marble.png",
	"shapes/balls/pack1/uskin20.marble.png",
	"shapes/balls/pack1/uskin22.marble.png",
	"shapes/balls/pack1/uskin25.marble.png",
	"shapes/balls/pack1/uskin28.marble.png",
	"shapes/balls/pack1/uskin30.marble.png",
	"shapes/balls/pack1/uskin34.marble.png",
	"shapes/balls/pack1/uskin37.marble.png",
	"shapes/balls/pack1/uskin40.marble.png",
}

// WrapSkin 将任意皮肤索引映射到 [0,count)；容忍来自不同目录版本的越界或负索引
func WrapSkin(index, count int) int {
	if count <= 0 {
		return 0
	}
	i := index % count
	if i < 0 {
		i += count
	}
	return i
}
