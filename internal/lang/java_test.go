package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/funcctx/internal/model"
	"github.com/dusk-indust/funcctx/internal/source"
)

const javaService = `package com.acme.app;

import com.acme.lib.Helper;
import static com.acme.lib.Util.check;
import java.util.*;

public abstract class Service extends Base implements Runnable, Closeable {
    private final Repo repo;

    public Service(Repo repo) {
        this.repo = repo;
    }

    @Override
    public void run() {
        Helper h = new Helper();
        h.assist();
        this.validate();
        repo.save("x");
        this.repo.flush();
        super.run();
        check();
        build().go();
    }

    private void validate() {}

    public String getName() { return name; }

    @Test
    public void testIt() {}

    abstract void pending();
}
`

func parseJava(t *testing.T, path, src string) []*source.Definition {
	t.Helper()
	defs, err := NewJavaAdapter().Definitions(source.NewUnit(path, []byte(src)))
	require.NoError(t, err)
	return defs
}

func TestJavaAdapter_Definitions(t *testing.T) {
	defs := parseJava(t, "src/com/acme/app/Service.java", javaService)
	require.Len(t, defs, 1)

	svc := defs[0]
	assert.Equal(t, "Service", svc.Name)
	assert.Equal(t, source.KindClass, svc.Kind)
	assert.Equal(t, []string{"Base", "Runnable", "Closeable"}, svc.Bases)
	assert.Equal(t, "Repo", svc.Vars["repo"])
	assert.Equal(t, "Repo", svc.Vars["this.repo"])
	assert.Equal(t, []string{"Service", "run", "validate", "getName", "testIt", "pending"}, topNames(svc.Children))

	ctor := svc.Children[0]
	assert.Equal(t, source.KindConstructor, ctor.Kind)
	assert.Equal(t, "Service.Service", ctor.Qualified)

	run := svc.Children[1]
	assert.Equal(t, source.KindMethod, run.Kind)
	assert.Equal(t, "Service", run.Owner)
	assert.Equal(t, []string{"Override"}, run.Decorators)
	assert.Equal(t, 14, run.StartLine, "annotations belong to the method")
	assert.Equal(t, 24, run.EndLine)
	assert.Equal(t, "Helper", run.Vars["h"])

	assert.True(t, svc.Children[5].Abstract)
}

func TestJavaAdapter_CallSites(t *testing.T) {
	a := NewJavaAdapter()
	defs := parseJava(t, "src/com/acme/app/Service.java", javaService)
	run := defs[0].Children[1]

	sites := a.CallSites(run)
	assert.Equal(t, []string{"Helper", "assist", "validate", "save", "flush", "run", "check", "go", "build"}, callNames(sites))

	assert.True(t, sites[0].Constructor)
	assert.Equal(t, source.ReceiverQualified, sites[1].Receiver)
	assert.Equal(t, "Helper", sites[1].TypeHint)
	assert.Equal(t, source.ReceiverSelf, sites[2].Receiver)
	assert.Equal(t, "Repo", sites[3].TypeHint)
	assert.Equal(t, "this.repo", sites[4].Qualifier)
	assert.Equal(t, "Repo", sites[4].TypeHint)
	assert.Equal(t, source.ReceiverSuper, sites[5].Receiver)
	assert.Equal(t, source.ReceiverNone, sites[6].Receiver)
	assert.Equal(t, source.ReceiverChained, sites[7].Receiver)
	assert.Equal(t, "h.assist()", sites[1].Text)
	assert.Equal(t, 17, sites[1].Line)
}

func TestJavaAdapter_AnonymousClassesStayInside(t *testing.T) {
	src := `class A {
    void start() {
        Runnable r = new Runnable() {
            public void run() { inner(); }
        };
        outer();
    }
}
`
	a := NewJavaAdapter()
	defs := parseJava(t, "A.java", src)
	require.Len(t, defs, 1)
	assert.Equal(t, []string{"start"}, topNames(defs[0].Children))
	assert.Equal(t, []string{"Runnable", "outer"}, callNames(a.CallSites(defs[0].Children[0])))
}

func TestJavaAdapter_TextHelpers(t *testing.T) {
	a := NewJavaAdapter()

	assert.True(t, a.IsDefinitionText("@Override\n    public void run() {"))
	assert.True(t, a.IsDefinitionText("public static <T> List<T> wrap(T x) {"))
	assert.False(t, a.IsDefinitionText("if (ready) {"))
	assert.False(t, a.IsDefinitionText("return compute(x);"))

	assert.Equal(t, "run", a.ExtractName("@Override\npublic void run() {"))
	assert.Equal(t, "public int size()", a.ExtractSignature("public int size() {\n    return n;\n}"))
	assert.Equal(t, "save", a.ExtractCallName("repo.save(x)"))
	assert.Equal(t, "this.save", a.ExtractCallName("this.save(x)"))
	assert.Equal(t, "Helper", a.ExtractCallName("new com.acme.Helper<>(1)"))

	content := "class A {\n    int f() {\n        return 1;\n    }\n}\n"
	assert.Equal(t, "int f() {\n        return 1;\n    }", a.ExtractBody(content, 14))
}

func TestJavaAdapter_IsRelevant(t *testing.T) {
	a := NewJavaAdapter()
	cfg := model.DefaultExtractionConfig()
	defs := parseJava(t, "src/com/acme/app/Service.java", javaService)

	assert.True(t, a.IsRelevant(findDef(defs, "run"), cfg))
	assert.True(t, a.IsRelevant(findDef(defs, "validate"), cfg))
	assert.False(t, a.IsRelevant(findDef(defs, "getName"), cfg), "one-line accessor")
	assert.False(t, a.IsRelevant(findDef(defs, "testIt"), cfg))
	assert.True(t, a.IsRelevant(findDef(defs, "testIt"), cfg.With(model.WithTests(true))))
	assert.False(t, a.IsRelevant(findDef(defs, "pending"), cfg), "abstract")
	assert.False(t, a.IsRelevant(defs[0], cfg), "class")
}

func TestJavaAdapter_Imports(t *testing.T) {
	a := NewJavaAdapter()
	u := source.NewUnit("src/com/acme/app/Service.java", []byte(javaService))

	imps := a.Imports(u)
	require.Len(t, imps, 3)

	assert.Equal(t, "com.acme.lib", imps[0].From)
	assert.Equal(t, "Helper", imps[0].Binding())
	assert.True(t, imps[1].Static)
	assert.Equal(t, "com.acme.lib.Util", imps[1].From)
	assert.Equal(t, "check", imps[1].Name)
	assert.True(t, imps[2].Wildcard)
	assert.Equal(t, "java.util", imps[2].From)

	assert.Equal(t, []Candidate{{Path: "com/acme/lib/Helper.java"}}, a.ImportCandidates(imps[0], u))
	assert.Equal(t, []Candidate{{Path: "com/acme/lib/Util.java"}}, a.ImportCandidates(imps[1], u))
	assert.Empty(t, a.ImportCandidates(imps[2], u))
	assert.Equal(t, []Candidate{{Path: "com/acme/model", Dir: true}},
		a.ImportCandidates(source.Import{From: "com.acme.model", Wildcard: true}, u))

	assert.Equal(t, "com.acme.app", a.PackageName(u))
}
