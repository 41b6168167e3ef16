package fuzztests

import "testing"

const maxSeedBytes = 64 << 10 // 64 KiB

// pythonSeeds покрывают все конструкции подмножества, которое понимает парсер,
// плюс несколько заведомо сломанных входов.
var pythonSeeds = []string{
	"",
	"\n",
	"x = 1\n",
	"def f(x: int = 0, *args, y, **kw) -> int:\n    return x\n",
	"class A(B, metaclass=M):\n    def run(self):\n        super().run()\n",
	"@decorator\n@other(1)\ndef g():\n    pass\n",
	"async def h():\n    await x\n    async for i in xs:\n        yield i\n",
	"if a:\n    pass\nelif b:\n    pass\nelse:\n    pass\n",
	"while x:\n    x -= 1\n    if x == 3:\n        break\n    continue\nelse:\n    done()\n",
	"for i, j in pairs:\n    print(i)\nelse:\n    pass\n",
	"try:\n    risky()\nexcept (ValueError, KeyError) as e:\n    raise\nelse:\n    ok()\nfinally:\n    cleanup()\n",
	"with open(p) as f, lock:\n    data = f.read()\n",
	"import os, sys as system\nfrom . import sibling\nfrom ..pkg.mod import a as b, c\nfrom m import *\n",
	"global g\nnonlocal n\ndel x[0], y.z\nassert x, 'msg'\n",
	"lam = lambda a, b=2: a + b\nv = [x for x in xs if x]\nd = {k: v for k, v in items}\n",
	"s = {1, 2}\nt = (1,)\nu = a if b else c\nw = not a and b or c\n",
	"x = a[1:2:3]\ny = f(*args, **kw)\nz = x.y.z()\n",
	"n = 0x1f + 0o7 + 0b1 + 1_000 + 1.5e-3 + 2j\n",
	"s = 'a' \"b\" '''c''' \"\"\"d\"\"\" r'\\n' b'x' f'{x}'\n",
	"x = (1 +\n     2)\ny = [\n    1,\n    2,\n]\nz = 1 + \\\n    2\n",
	"a, *rest = xs\nx: int = 1\nx += 1\nx @= m\n",
	"if x:\n\tpass\n",
	"def f(:\n",
	"class :\n    pass\n",
	"s = 'unterminated\n",
	"x = \"\"\"never closed\n",
	"  x = 1\ny = 2\n",
	"def f():\n    if x:\n  return 1\n",
	"x = ((((\n",
	"@\n",
	"x = 1 $ 2\n",
	"\x00\xff\xfe",
}

func addSeeds(f *testing.F) {
	for _, s := range pythonSeeds {
		f.Add(clampSeed([]byte(s)))
	}
}

func clampSeed(data []byte) []byte {
	if len(data) > maxSeedBytes {
		return data[:maxSeedBytes]
	}
	return data
}
